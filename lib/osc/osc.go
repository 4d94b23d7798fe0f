package osc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrShort = errors.New("osc: message too short")

type Message struct {
	Address string
	Args    []any
}

func pad(n int) int {
	return (4 - n%4) % 4
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	buf = append(buf, 0)
	for range pad(len(s) + 1) {
		buf = append(buf, 0)
	}
	return buf
}

func typeTag(arg any) (byte, error) {
	switch v := arg.(type) {
	case int32:
		return 'i', nil
	case float32:
		return 'f', nil
	case string:
		return 's', nil
	case []byte:
		return 'b', nil
	case int64:
		return 'h', nil
	case float64:
		return 'd', nil
	case bool:
		if v {
			return 'T', nil
		}
		return 'F', nil
	case nil:
		return 'N', nil
	default:
		return 0, fmt.Errorf("osc: unsupported argument type %T", arg)
	}
}

func (m Message) MarshalBinary() ([]byte, error) {
	if !strings.HasPrefix(m.Address, "/") {
		return nil, fmt.Errorf("osc: bad address %q", m.Address)
	}
	tags := []byte{','}
	for _, arg := range m.Args {
		t, err := typeTag(arg)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}

	buf := appendString(nil, m.Address)
	buf = appendString(buf, string(tags))
	for _, arg := range m.Args {
		switch v := arg.(type) {
		case int32:
			buf = binary.BigEndian.AppendUint32(buf, uint32(v))
		case float32:
			buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(v))
		case string:
			buf = appendString(buf, v)
		case []byte:
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(v)))
			buf = append(buf, v...)
			for range pad(len(v)) {
				buf = append(buf, 0)
			}
		case int64:
			buf = binary.BigEndian.AppendUint64(buf, uint64(v))
		case float64:
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return buf, nil
}

func readString(data []byte, pos int) (string, int, error) {
	end := pos
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end >= len(data) {
		return "", 0, fmt.Errorf("osc: unterminated string")
	}
	return string(data[pos:end]), end + 1 + pad(end-pos+1), nil
}

func Parse(data []byte) (Message, error) {
	var m Message
	if len(data) < 4 {
		return m, ErrShort
	}
	addr, pos, err := readString(data, 0)
	if err != nil {
		return m, err
	}
	m.Address = addr
	if pos >= len(data) || data[pos] != ',' {
		return m, nil
	}
	tags, pos, err := readString(data, pos)
	if err != nil {
		return m, err
	}

	for _, t := range tags[1:] {
		switch t {
		case 'i':
			if pos+4 > len(data) {
				return m, fmt.Errorf("osc: truncated int32")
			}
			m.Args = append(m.Args, int32(binary.BigEndian.Uint32(data[pos:])))
			pos += 4
		case 'f':
			if pos+4 > len(data) {
				return m, fmt.Errorf("osc: truncated float32")
			}
			m.Args = append(m.Args, math.Float32frombits(binary.BigEndian.Uint32(data[pos:])))
			pos += 4
		case 's':
			var s string
			s, pos, err = readString(data, pos)
			if err != nil {
				return m, err
			}
			m.Args = append(m.Args, s)
		case 'b':
			if pos+4 > len(data) {
				return m, fmt.Errorf("osc: truncated blob size")
			}
			size := int(binary.BigEndian.Uint32(data[pos:]))
			pos += 4
			if size < 0 || pos+size > len(data) {
				return m, fmt.Errorf("osc: truncated blob")
			}
			m.Args = append(m.Args, append([]byte(nil), data[pos:pos+size]...))
			pos += size + pad(size)
		case 'h':
			if pos+8 > len(data) {
				return m, fmt.Errorf("osc: truncated int64")
			}
			m.Args = append(m.Args, int64(binary.BigEndian.Uint64(data[pos:])))
			pos += 8
		case 'd':
			if pos+8 > len(data) {
				return m, fmt.Errorf("osc: truncated float64")
			}
			m.Args = append(m.Args, math.Float64frombits(binary.BigEndian.Uint64(data[pos:])))
			pos += 8
		case 'T':
			m.Args = append(m.Args, true)
		case 'F':
			m.Args = append(m.Args, false)
		case 'N':
			m.Args = append(m.Args, nil)
		default:
			return m, fmt.Errorf("osc: unknown type tag %q", t)
		}
	}
	return m, nil
}

// Float returns argument i as a float64 when it is numeric.
func (m Message) Float(i int) (float64, bool) {
	if i >= len(m.Args) {
		return 0, false
	}
	switch v := m.Args[i].(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func (m Message) String(i int) (string, bool) {
	if i >= len(m.Args) {
		return "", false
	}
	s, ok := m.Args[i].(string)
	return s, ok
}

// Match reports whether addr fits a pattern with one {channel} placeholder
// and returns the 1-based channel number it carries.
func Match(pattern, addr string) (int, bool) {
	const hole = "{channel}"
	i := strings.Index(pattern, hole)
	if i < 0 {
		return 0, false
	}
	prefix, suffix := pattern[:i], pattern[i+len(hole):]
	if !strings.HasPrefix(addr, prefix) || !strings.HasSuffix(addr, suffix) || len(addr) <= len(prefix)+len(suffix) {
		return 0, false
	}
	digits := addr[len(prefix) : len(addr)-len(suffix)]
	n := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
