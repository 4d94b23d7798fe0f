package xtouch

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gitlab.com/gomidi/midi/v2"

	"faderbridge/lib/protocol"
	"faderbridge/lib/state"
)

type Controller interface {
	SetFaderLevel(fader int, level float64)
	SetInputGain(fader int, level float64)
	TogglePgm(fader int)
	ToggleVo(fader int)
	TogglePfl(fader int)
	ToggleMute(fader int)
}

// Panel shows eight faders on an extender starting at First. Strips follow
// the store; moving a strip drives the controller.
type Panel struct {
	out   *Output
	ctl   Controller
	store *state.Store
	proto *protocol.MixerProtocol
	log   *slog.Logger
	First int

	mu      sync.Mutex
	touched [Strips]bool
}

func NewPanel(out *Output, ctl Controller, store *state.Store, proto *protocol.MixerProtocol, first int, log *slog.Logger) *Panel {
	if log == nil {
		log = slog.Default()
	}
	return &Panel{out: out, ctl: ctl, store: store, proto: proto, First: first, log: log.With("panel", "xtouch")}
}

func (p *Panel) strip(fader int) (uint8, bool) {
	s := fader - p.First
	if s < 0 || s >= Strips {
		return 0, false
	}
	return uint8(s), true
}

func (p *Panel) toCC(level float64) uint8 {
	r := p.proto.Fader
	if r.Max == r.Min {
		return 0
	}
	norm := (p.proto.ClampFader(level) - r.Min) / (r.Max - r.Min)
	return uint8(math.Round(norm * 127))
}

func (p *Panel) fromCC(v uint8) float64 {
	r := p.proto.Fader
	return r.Min + float64(v)/127*(r.Max-r.Min)
}

// Receive is the MIDI listener callback.
func (p *Panel) Receive(msg midi.Message, timestampms int32) {
	if ev := Decode(msg); ev != nil {
		p.Handle(ev)
	}
}

func (p *Panel) Handle(ev Event) {
	switch e := ev.(type) {
	case FaderTouchEvent:
		p.mu.Lock()
		p.touched[e.Strip] = e.Touched
		p.mu.Unlock()
	case FaderEvent:
		p.ctl.SetFaderLevel(p.First+int(e.Strip), p.fromCC(e.Value))
	case EncoderEvent:
		fader := p.First + int(e.Strip)
		f, ok := p.store.State().Fader(fader)
		if !ok {
			return
		}
		step := p.proto.Fader.Step
		if step == 0 {
			step = (p.proto.Fader.Max - p.proto.Fader.Min) / 100
		}
		p.ctl.SetInputGain(fader, f.InputGain+float64(e.Delta)*step)
	case ButtonEvent:
		if !e.Pressed {
			return
		}
		fader := p.First + int(e.Strip)
		switch e.Row {
		case RowSelect:
			p.ctl.TogglePgm(fader)
		case RowRec:
			p.ctl.ToggleVo(fader)
		case RowSolo:
			p.ctl.TogglePfl(fader)
		case RowMute:
			p.ctl.ToggleMute(fader)
		}
	}
}

func (p *Panel) UpdateRemoteFaderState(fader int, level float64) {
	s, ok := p.strip(fader)
	if !ok {
		return
	}
	f, ok := p.store.State().Fader(fader)
	if !ok {
		return
	}
	if err := p.draw(s, fader, f); err != nil {
		p.log.Debug("update strip", "strip", s, "error", err)
	}
}

func (p *Panel) UpdateRemoteAuxPanels() {
	if err := p.Refresh(); err != nil {
		p.log.Debug("refresh", "error", err)
	}
}

func (p *Panel) Refresh() error {
	st := p.store.State()
	for s := uint8(0); s < Strips; s++ {
		fader := p.First + int(s)
		f, ok := st.Fader(fader)
		if !ok {
			if err := p.out.SetLCD(s, ColorBlack, false, false, "", ""); err != nil {
				return err
			}
			continue
		}
		if err := p.draw(s, fader, f); err != nil {
			return err
		}
	}
	return nil
}

func led(on bool) LEDState {
	if on {
		return LEDOn
	}
	return LEDOff
}

func stripColor(f state.Fader) LCDColor {
	switch {
	case f.PgmOn:
		return ColorRed
	case f.VoOn:
		return ColorYellow
	case f.PstOn || f.PstVoOn:
		return ColorBlue
	case f.PflOn:
		return ColorGreen
	}
	return ColorWhite
}

func (p *Panel) readout(level float64) string {
	db := p.proto.LevelToDB(level)
	if math.IsInf(db, -1) || db < -99 {
		return "-inf"
	}
	return fmt.Sprintf("%+.1f", db)
}

func (p *Panel) draw(s uint8, fader int, f state.Fader) error {
	p.mu.Lock()
	touched := p.touched[s]
	p.mu.Unlock()
	if !touched {
		if err := p.out.SetFader(s, p.toCC(f.Level)); err != nil {
			return err
		}
	}
	if err := p.out.SetEncoderRing(s, p.toCC(f.InputGain)); err != nil {
		return err
	}
	for _, b := range []struct {
		row Row
		on  bool
	}{
		{RowSelect, f.PgmOn},
		{RowRec, f.VoOn},
		{RowSolo, f.PflOn},
		{RowMute, f.MuteOn},
	} {
		if err := p.out.SetButtonLED(ButtonNote(b.row, s), led(b.on)); err != nil {
			return err
		}
	}
	label := f.Label
	if label == "" {
		label = fmt.Sprintf("Fader%d", fader+1)
	}
	return p.out.SetLCD(s, stripColor(f), false, true, label, p.readout(f.Level))
}
