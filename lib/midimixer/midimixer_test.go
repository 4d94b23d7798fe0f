package midimixer

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"faderbridge/lib/protocol"
)

type faderMove struct {
	ch    int
	level float64
}

type inbound struct {
	moves []faderMove
}

func (in *inbound) MixerFaderLevel(ch int, level float64) {
	in.moves = append(in.moves, faderMove{ch, level})
}

func (in *inbound) MixerChannelName(ch int, name string) {}
func (in *inbound) MixerVu(ch int, level float64)        {}
func (in *inbound) MixerOnline(online bool)              {}

type cc struct {
	controller, value uint8
}

func setupTest(t *testing.T, desc *protocol.MixerProtocol) (*Mixer, *[]cc, *inbound) {
	t.Helper()
	var sent []cc
	in := &inbound{}
	m := New(desc, func(msg midi.Message) error {
		var ch, c, v uint8
		if !msg.GetControlChange(&ch, &c, &v) {
			t.Fatalf("unexpected message %v", msg)
		}
		sent = append(sent, cc{c, v})
		return nil
	}, in, nil)
	return m, &sent, in
}

func genericMidi(t *testing.T) *protocol.MixerProtocol {
	t.Helper()
	desc, ok := protocol.Lookup("genericMidi")
	if !ok {
		t.Fatal("no genericMidi preset")
	}
	return desc
}

func TestOutputLevel(t *testing.T) {
	m, sent, _ := setupTest(t, genericMidi(t))
	if err := m.SendOutputLevel(3, 100); err != nil {
		t.Fatal(err)
	}
	if err := m.SendOutputLevel(4, 200); err != nil {
		t.Fatal(err)
	}
	want := []cc{{3, 100}, {4, 127}}
	if len(*sent) != len(want) {
		t.Fatalf("got %v, want %v", *sent, want)
	}
	for i := range want {
		if (*sent)[i] != want[i] {
			t.Errorf("got %v, want %v", (*sent)[i], want[i])
		}
	}
}

func TestOutputLevelScaled(t *testing.T) {
	desc := &protocol.MixerProtocol{
		Name:       "unit",
		Protocol:   "MIDI",
		Fader:      protocol.Range{Min: 0, Max: 1, Zero: 0.75},
		OutputGain: protocol.Range{Min: 0, Max: 1, Zero: 0.75},
		ToMixer: map[protocol.MessageKind][]protocol.Command{
			protocol.ChannelOutGain: {{Message: "20", Min: 0, Max: 127}},
		},
		FromMixer: map[protocol.MessageKind][]protocol.Command{
			protocol.ChannelOutGain: {{Message: "20", Min: 0, Max: 127}},
		},
	}
	m, sent, in := setupTest(t, desc)
	if err := m.SendOutputLevel(1, 0.5); err != nil {
		t.Fatal(err)
	}
	if got := (*sent)[0]; got != (cc{21, 64}) {
		t.Errorf("got %v, want {21 64}", got)
	}

	m.Receive(midi.ControlChange(0, 22, 127), 0)
	if len(in.moves) != 1 || in.moves[0] != (faderMove{2, 1}) {
		t.Errorf("got %v, want [{2 1}]", in.moves)
	}
}

func TestControllerOutOfRange(t *testing.T) {
	m, _, _ := setupTest(t, genericMidi(t))
	if err := m.SendOutputLevel(200, 1); err == nil {
		t.Error("expected error")
	}
}

func TestPfl(t *testing.T) {
	m, sent, _ := setupTest(t, genericMidi(t))
	m.SendPflState(2, true)
	m.SendPflState(2, false)
	want := []cc{{92, 127}, {92, 0}}
	for i := range want {
		if (*sent)[i] != want[i] {
			t.Errorf("got %v, want %v", (*sent)[i], want[i])
		}
	}
}

func TestUnsupportedAreSilent(t *testing.T) {
	m, sent, _ := setupTest(t, genericMidi(t))
	for range 3 {
		if err := m.SendMuteState(0, true); err != nil {
			t.Fatal(err)
		}
		if err := m.SendAuxLevel(0, 1, 0.5); err != nil {
			t.Fatal(err)
		}
		if err := m.SendChannelName(0, "x"); err != nil {
			t.Fatal(err)
		}
	}
	if len(*sent) != 0 {
		t.Errorf("got %v, want nothing sent", *sent)
	}
}

func TestReceiveFader(t *testing.T) {
	m, _, in := setupTest(t, genericMidi(t))
	m.Receive(midi.ControlChange(0, 5, 90), 0)
	m.Receive(midi.ControlChange(0, 24, 10), 0)
	m.Receive(midi.ControlChange(0, 25, 10), 0)
	m.Receive(midi.ControlChange(1, 5, 90), 0)
	m.Receive(midi.NoteOn(0, 5, 90), 0)

	want := []faderMove{{5, 90}, {24, 10}}
	if len(in.moves) != len(want) {
		t.Fatalf("got %v, want %v", in.moves, want)
	}
	for i := range want {
		if in.moves[i] != want[i] {
			t.Errorf("got %v, want %v", in.moves[i], want[i])
		}
	}
}
