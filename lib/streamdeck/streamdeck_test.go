package streamdeck

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	"faderbridge/lib/protocol"
	"faderbridge/lib/state"
)

type surface struct {
	model *Model
	keys  map[int]image.Image
	lcd   []image.Rectangle
}

func newSurface(m *Model) *surface {
	return &surface{model: m, keys: map[int]image.Image{}}
}

func (s *surface) Model() *Model { return s.model }

func (s *surface) SetKeyImage(key int, img image.Image) error {
	if key < 0 || key >= s.model.Keys {
		return fmt.Errorf("invalid key %d", key)
	}
	s.keys[key] = img
	return nil
}

func (s *surface) SetLCDImage(x, y, w, h int, img image.Image) error {
	s.lcd = append(s.lcd, image.Rect(x, y, x+w, y+h))
	return nil
}

type controller struct {
	calls []string
}

func (c *controller) SetFaderLevel(fader int, level float64) {
	c.calls = append(c.calls, fmt.Sprintf("level %d %.2f", fader, level))
}

func (c *controller) TogglePgm(fader int)  { c.calls = append(c.calls, fmt.Sprintf("pgm %d", fader)) }
func (c *controller) ToggleVo(fader int)   { c.calls = append(c.calls, fmt.Sprintf("vo %d", fader)) }
func (c *controller) TogglePfl(fader int)  { c.calls = append(c.calls, fmt.Sprintf("pfl %d", fader)) }
func (c *controller) ToggleMute(fader int) { c.calls = append(c.calls, fmt.Sprintf("mute %d", fader)) }

func setupPanel(t *testing.T, m *Model) (*Panel, *surface, *controller, *state.Store) {
	t.Helper()
	proto, ok := protocol.Lookup("reaper")
	if !ok {
		t.Fatal("no reaper preset")
	}
	store := state.NewStore(state.New(state.Layout{Faders: 10, Channels: []int{10}}))
	dev := newSurface(m)
	ctl := &controller{}
	return NewPanel(dev, ctl, store, proto, 4, nil), dev, ctl, store
}

func checkCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %q, want %q", got[i], want[i])
		}
	}
}

func TestKeysToggle(t *testing.T) {
	p, _, ctl, _ := setupPanel(t, &ModelXL)
	for _, key := range []int{0, 9, 18, 27, 31} {
		p.Handle(InputEvent{Key: &KeyEvent{Key: key, Pressed: true}})
		p.Handle(InputEvent{Key: &KeyEvent{Key: key, Pressed: false}})
	}
	checkCalls(t, ctl.calls, []string{"pgm 4", "vo 5", "pfl 6", "mute 7", "mute 11"})
}

func TestEncodersNudgeLevel(t *testing.T) {
	p, _, ctl, store := setupPanel(t, &ModelPlus)
	store.Dispatch(state.SetFaderLevel{Fader: 5, Level: 0.5})
	p.Handle(InputEvent{Encoder: &EncoderEvent{Encoder: 1, Delta: 3}})
	p.Handle(InputEvent{Encoder: &EncoderEvent{Encoder: 1, Delta: -2}})
	p.Handle(InputEvent{Encoder: &EncoderEvent{Encoder: 2, Pressed: true}})
	p.Handle(InputEvent{Key: &KeyEvent{Key: 5, Pressed: true}})
	checkCalls(t, ctl.calls, []string{"level 5 0.53", "level 5 0.48", "pfl 6", "vo 5"})
}

func keyColor(img image.Image) color.RGBA {
	r, g, b, a := img.At(1, 1).RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func TestColumnFollowsStore(t *testing.T) {
	p, dev, _, store := setupPanel(t, &ModelXL)
	store.Dispatch(state.SetPgm{Fader: 6, On: true})
	store.Dispatch(state.TogglePfl{Fader: 6})

	p.UpdateRemoteFaderState(1, 0)
	if len(dev.keys) != 0 {
		t.Fatalf("fader outside the deck drew %d keys", len(dev.keys))
	}

	p.UpdateRemoteFaderState(6, 0)
	if len(dev.keys) != 4 {
		t.Fatalf("got %d keys, want 4", len(dev.keys))
	}
	want := []color.Color{keyRows[0].lit, keyOff, keyRows[2].lit, keyOff}
	for row, c := range want {
		if got := keyColor(dev.keys[row*8+2]); got != c {
			t.Errorf("row %d: got %v, want %v", row, got, c)
		}
	}
}

func TestRefreshDrawsLCD(t *testing.T) {
	p, dev, _, _ := setupPanel(t, &ModelPlus)
	if err := p.Refresh(); err != nil {
		t.Fatal(err)
	}
	if len(dev.keys) != 8 {
		t.Errorf("got %d keys, want 8", len(dev.keys))
	}
	if len(dev.lcd) != 4 {
		t.Fatalf("got %d lcd segments, want 4", len(dev.lcd))
	}
	if dev.lcd[3] != image.Rect(600, 0, 800, 100) {
		t.Errorf("got %v", dev.lcd[3])
	}
}

func TestInputDecoder(t *testing.T) {
	d := newInputDecoder(&ModelPlus)
	keys := make([]byte, 12)
	keys[3+2] = 1
	evs := d.decode(keys)
	if len(evs) != 1 || evs[0].Key == nil || evs[0].Key.Key != 2 || !evs[0].Key.Pressed {
		t.Fatalf("got %+v", evs)
	}
	if evs := d.decode(keys); len(evs) != 0 {
		t.Errorf("repeated report gave %d events", len(evs))
	}

	turn := []byte{0x03, 0, 0, 0x01, 0, 0xFE, 0, 1}
	evs = d.decode(turn)
	if len(evs) != 2 || evs[0].Encoder.Encoder != 1 || evs[0].Encoder.Delta != -2 || evs[1].Encoder.Delta != 1 {
		t.Errorf("got %+v %+v", evs[0].Encoder, evs[1].Encoder)
	}
}
