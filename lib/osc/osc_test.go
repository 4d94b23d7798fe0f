package osc

import (
	"bytes"
	"testing"
)

func TestMessageEncoding(t *testing.T) {
	buf, err := Message{Address: "/ch/01/mix/fader", Args: []any{float32(0.75)}}.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte("/ch/01/mix/fader\x00\x00\x00\x00,f\x00\x00\x3f\x40\x00\x00")
	if !bytes.Equal(buf, want) {
		t.Errorf("got %q, want %q", buf, want)
	}
}

func TestParseArgs(t *testing.T) {
	in := Message{Address: "/track/3/name", Args: []any{"Host 1", int32(-4), float32(0.5), true, []byte{1, 2, 3}}}
	buf, err := in.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	m, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if m.Address != in.Address {
		t.Errorf("got %q, want %q", m.Address, in.Address)
	}
	if s, ok := m.String(0); !ok || s != "Host 1" {
		t.Errorf("got %q", s)
	}
	if f, ok := m.Float(1); !ok || f != -4 {
		t.Errorf("got %v", f)
	}
	if f, ok := m.Float(2); !ok || f != 0.5 {
		t.Errorf("got %v", f)
	}
	if m.Args[3] != true {
		t.Errorf("got %v, want true", m.Args[3])
	}
	if b := m.Args[4].([]byte); !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Errorf("got %v", b)
	}
}

func TestParseTruncated(t *testing.T) {
	buf, _ := Message{Address: "/a", Args: []any{float32(1)}}.MarshalBinary()
	if _, err := Parse(buf[:len(buf)-2]); err == nil {
		t.Error("expected error")
	}
	if _, err := Parse([]byte{'/'}); err != ErrShort {
		t.Errorf("got %v, want ErrShort", err)
	}
}

func TestRejectsUnsupportedArg(t *testing.T) {
	if _, err := (Message{Address: "/a", Args: []any{3}}).MarshalBinary(); err == nil {
		t.Error("expected error for int")
	}
	if _, err := (Message{Address: "a"}).MarshalBinary(); err == nil {
		t.Error("expected error for address without slash")
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, addr string
		ch            int
		ok            bool
	}{
		{"/ch/{channel}/mix/fader", "/ch/07/mix/fader", 7, true},
		{"/track/{channel}/volume", "/track/12/volume", 12, true},
		{"/ch/{channel}/mix/fader", "/ch/07/mix/on", 0, false},
		{"/ch/{channel}/mix/fader", "/ch//mix/fader", 0, false},
		{"/ch/{channel}/mix/fader", "/ch/x1/mix/fader", 0, false},
		{"/xremote", "/xremote", 0, false},
	}
	for _, tt := range tests {
		ch, ok := Match(tt.pattern, tt.addr)
		if ch != tt.ch || ok != tt.ok {
			t.Errorf("%s: got %d %v, want %d %v", tt.addr, ch, ok, tt.ch, tt.ok)
		}
	}
}

func TestSlipFraming(t *testing.T) {
	payload := []byte{1, slipEnd, 2, slipEsc, 3}
	framed := Frame(payload)
	stream := append(append([]byte{}, framed...), Frame([]byte{9})...)
	stream = append(stream, slipEnd, 7)

	frame, rest, ok := NextFrame(stream)
	if !ok || !bytes.Equal(frame, payload) {
		t.Fatalf("got %v %v", frame, ok)
	}
	frame, rest, ok = NextFrame(rest)
	if !ok || !bytes.Equal(frame, []byte{9}) {
		t.Fatalf("got %v %v", frame, ok)
	}
	frame, rest, ok = NextFrame(rest)
	if ok {
		t.Fatalf("unexpected frame %v", frame)
	}
	if !bytes.Equal(rest, []byte{slipEnd, 7}) {
		t.Errorf("got rest %v", rest)
	}
}
