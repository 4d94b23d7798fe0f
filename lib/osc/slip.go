package osc

const (
	slipEnd    = 0xC0
	slipEsc    = 0xDB
	slipEscEnd = 0xDC
	slipEscEsc = 0xDD
)

// Frame wraps a packet in SLIP END markers for stream transports.
func Frame(data []byte) []byte {
	out := make([]byte, 0, len(data)+2)
	out = append(out, slipEnd)
	for _, b := range data {
		switch b {
		case slipEnd:
			out = append(out, slipEsc, slipEscEnd)
		case slipEsc:
			out = append(out, slipEsc, slipEscEsc)
		default:
			out = append(out, b)
		}
	}
	return append(out, slipEnd)
}

func unescape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == slipEsc && i+1 < len(data) {
			switch data[i+1] {
			case slipEscEnd:
				out = append(out, slipEnd)
			case slipEscEsc:
				out = append(out, slipEsc)
			}
			i++
			continue
		}
		out = append(out, data[i])
	}
	return out
}

// NextFrame pulls the first complete frame out of buf. Empty frames between
// back-to-back END markers are skipped.
func NextFrame(buf []byte) (frame, rest []byte, ok bool) {
	start := -1
	for i, b := range buf {
		if b != slipEnd {
			continue
		}
		if start >= 0 && i > start+1 {
			return unescape(buf[start+1 : i]), buf[i+1:], true
		}
		start = i
	}
	if start > 0 {
		return nil, buf[start:], false
	}
	return nil, buf, false
}
