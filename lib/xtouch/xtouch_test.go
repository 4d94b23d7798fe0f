package xtouch

import (
	"fmt"
	"strings"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"faderbridge/lib/protocol"
	"faderbridge/lib/state"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		msg  midi.Message
		want string
	}{
		{midi.NoteOn(0, 24, 127), "select 1 pressed"},
		{midi.NoteOn(0, 3, 127), "rec 4 pressed"},
		{midi.NoteOn(0, 15, 0), "solo 8 released"},
		{midi.NoteOffVelocity(0, 17, 0), "mute 2 released"},
		{midi.NoteOn(0, 112, 127), "fader 3 touched"},
		{midi.ControlChange(0, 73, 90), "fader 4 = 90"},
		{midi.ControlChange(0, 80, 65), "encoder 1 +1"},
		{midi.ControlChange(0, 87, 3), "encoder 8 -3"},
	}
	for _, tt := range tests {
		ev := Decode(tt.msg)
		if ev == nil {
			t.Errorf("%v: got nil, want %q", tt.msg, tt.want)
			continue
		}
		if got := ev.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestDecodeIgnored(t *testing.T) {
	for _, msg := range []midi.Message{
		midi.NoteOn(0, 60, 127),
		midi.ControlChange(0, 78, 10),
		midi.ControlChange(0, 80, 0),
		midi.ProgramChange(0, 4),
	} {
		if ev := Decode(msg); ev != nil {
			t.Errorf("%v: got %v, want nil", msg, ev)
		}
	}
}

type controller struct {
	calls []string
}

func (c *controller) SetFaderLevel(fader int, level float64) {
	c.calls = append(c.calls, fmt.Sprintf("level %d %.2f", fader, level))
}

func (c *controller) SetInputGain(fader int, level float64) {
	c.calls = append(c.calls, fmt.Sprintf("gain %d %.2f", fader, level))
}

func (c *controller) TogglePgm(fader int)  { c.calls = append(c.calls, fmt.Sprintf("pgm %d", fader)) }
func (c *controller) ToggleVo(fader int)   { c.calls = append(c.calls, fmt.Sprintf("vo %d", fader)) }
func (c *controller) TogglePfl(fader int)  { c.calls = append(c.calls, fmt.Sprintf("pfl %d", fader)) }
func (c *controller) ToggleMute(fader int) { c.calls = append(c.calls, fmt.Sprintf("mute %d", fader)) }

func setupPanel(t *testing.T) (*Panel, *controller, *state.Store, *[]midi.Message) {
	t.Helper()
	var sent []midi.Message
	out := NewOutputFunc(func(msg midi.Message) error {
		sent = append(sent, msg)
		return nil
	}, DeviceIDExtender)
	proto, ok := protocol.Lookup("behringerXr")
	if !ok {
		t.Fatal("no behringerXr preset")
	}
	store := state.NewStore(state.New(state.Layout{Faders: 12, Channels: []int{12}}))
	ctl := &controller{}
	return NewPanel(out, ctl, store, proto, 8, nil), ctl, store, &sent
}

func TestPanelInput(t *testing.T) {
	p, ctl, _, _ := setupPanel(t)
	p.Receive(midi.NoteOn(0, 24, 127), 0)
	p.Receive(midi.NoteOn(0, 24, 0), 0)
	p.Receive(midi.NoteOn(0, 1, 127), 0)
	p.Receive(midi.NoteOn(0, 10, 127), 0)
	p.Receive(midi.NoteOn(0, 19, 127), 0)
	p.Receive(midi.ControlChange(0, 70, 127), 0)
	p.Receive(midi.ControlChange(0, 81, 66), 0)

	want := []string{"pgm 8", "vo 9", "pfl 10", "mute 11", "level 8 1.00", "gain 9 0.02"}
	if len(ctl.calls) != len(want) {
		t.Fatalf("got %v, want %v", ctl.calls, want)
	}
	for i := range want {
		if ctl.calls[i] != want[i] {
			t.Errorf("got %q, want %q", ctl.calls[i], want[i])
		}
	}
}

func faderValue(msgs []midi.Message, strip uint8) (uint8, bool) {
	var found bool
	var last uint8
	for _, m := range msgs {
		var ch, cc, v uint8
		if m.GetControlChange(&ch, &cc, &v) && cc == CCFaderFirst+strip {
			last, found = v, true
		}
	}
	return last, found
}

func TestPanelFollowsStore(t *testing.T) {
	p, _, store, sent := setupPanel(t)
	store.Dispatch(state.SetFaderLevel{Fader: 9, Level: 0.75})
	store.Dispatch(state.SetPgm{Fader: 9, On: true})
	store.Dispatch(state.SetFaderLabel{Fader: 9, Label: "Studio"})

	p.UpdateRemoteFaderState(2, 0.5)
	if len(*sent) != 0 {
		t.Fatalf("fader outside bank sent %d messages", len(*sent))
	}

	p.UpdateRemoteFaderState(9, 0.75)
	if v, ok := faderValue(*sent, 1); !ok || v != 95 {
		t.Errorf("got fader value %d %v, want 95", v, ok)
	}

	var led, lcd bool
	for _, m := range *sent {
		var ch, key, vel uint8
		if m.GetNoteStart(&ch, &key, &vel) && key == ButtonNote(RowSelect, 1) && vel == uint8(LEDOn) {
			led = true
		}
		var data []byte
		if m.GetSysEx(&data) && strings.Contains(string(data), "Studio") && strings.Contains(string(data), "+0.0") {
			lcd = true
			if data[5] != 1 || LCDColor(data[6]&0x07) != ColorRed {
				t.Errorf("lcd header %v", data[:7])
			}
		}
	}
	if !led {
		t.Error("select LED not lit")
	}
	if !lcd {
		t.Error("LCD not written")
	}
}

func TestTouchedFaderIsNotMoved(t *testing.T) {
	p, _, store, sent := setupPanel(t)
	p.Receive(midi.NoteOn(0, NoteFaderTouchFirst, 127), 0)
	store.Dispatch(state.SetFaderLevel{Fader: 8, Level: 0.5})
	p.UpdateRemoteFaderState(8, 0.5)
	if _, ok := faderValue(*sent, 0); ok {
		t.Error("motor moved under a finger")
	}

	p.Receive(midi.NoteOn(0, NoteFaderTouchFirst, 0), 0)
	p.UpdateRemoteFaderState(8, 0.5)
	if v, ok := faderValue(*sent, 0); !ok || v != 64 {
		t.Errorf("got %d %v, want 64", v, ok)
	}
}

func TestRefreshBlanksMissingFaders(t *testing.T) {
	p, _, _, sent := setupPanel(t)
	if err := p.Refresh(); err != nil {
		t.Fatal(err)
	}
	blank := 0
	for _, m := range *sent {
		var data []byte
		if m.GetSysEx(&data) && strings.TrimSpace(string(data[7:])) == "" {
			blank++
		}
	}
	if blank != 4 {
		t.Errorf("got %d blank strips, want 4", blank)
	}
}
