package streamdeck

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"faderbridge/lib/protocol"
	"faderbridge/lib/state"
)

type Surface interface {
	Model() *Model
	SetKeyImage(key int, img image.Image) error
	SetLCDImage(x, y, w, h int, img image.Image) error
}

type Controller interface {
	SetFaderLevel(fader int, level float64)
	TogglePgm(fader int)
	ToggleVo(fader int)
	TogglePfl(fader int)
	ToggleMute(fader int)
}

type keyRow struct {
	name   string
	on     func(state.Fader) bool
	lit    color.Color
	toggle func(Controller, int)
}

var keyRows = []keyRow{
	{"PGM", func(f state.Fader) bool { return f.PgmOn }, color.RGBA{200, 0, 0, 255}, Controller.TogglePgm},
	{"VO", func(f state.Fader) bool { return f.VoOn }, color.RGBA{220, 160, 0, 255}, Controller.ToggleVo},
	{"PFL", func(f state.Fader) bool { return f.PflOn }, color.RGBA{0, 160, 0, 255}, Controller.TogglePfl},
	{"MUTE", func(f state.Fader) bool { return f.MuteOn }, color.RGBA{0, 70, 200, 255}, Controller.ToggleMute},
}

var (
	keyOff  = color.RGBA{30, 30, 30, 255}
	keyText = color.White
)

// Panel lays faders out as columns starting at First, one row of keys per
// on-air switch. Decks with encoders nudge the column's level and show it
// on the LCD strip.
type Panel struct {
	dev   Surface
	ctl   Controller
	store *state.Store
	proto *protocol.MixerProtocol
	log   *slog.Logger
	First int
}

func NewPanel(dev Surface, ctl Controller, store *state.Store, proto *protocol.MixerProtocol, first int, log *slog.Logger) *Panel {
	if log == nil {
		log = slog.Default()
	}
	return &Panel{dev: dev, ctl: ctl, store: store, proto: proto, First: first, log: log.With("panel", "streamdeck")}
}

func (p *Panel) rows() []keyRow {
	n := min(p.dev.Model().KeyRows, len(keyRows))
	return keyRows[:n]
}

func (p *Panel) column(fader int) (int, bool) {
	col := fader - p.First
	return col, col >= 0 && col < p.dev.Model().KeyCols
}

// Run handles input until events is closed.
func (p *Panel) Run(events <-chan InputEvent) {
	for ev := range events {
		p.Handle(ev)
	}
}

func (p *Panel) Handle(ev InputEvent) {
	m := p.dev.Model()
	switch {
	case ev.Key != nil && ev.Key.Pressed:
		row, col := ev.Key.Key/m.KeyCols, ev.Key.Key%m.KeyCols
		rows := p.rows()
		if row >= len(rows) {
			return
		}
		rows[row].toggle(p.ctl, p.First+col)
	case ev.Encoder != nil && ev.Encoder.Pressed:
		p.ctl.TogglePfl(p.First + ev.Encoder.Encoder)
	case ev.Encoder != nil && ev.Encoder.Delta != 0:
		fader := p.First + ev.Encoder.Encoder
		f, ok := p.store.State().Fader(fader)
		if !ok {
			return
		}
		step := p.proto.Fader.Step
		if step == 0 {
			step = (p.proto.Fader.Max - p.proto.Fader.Min) / 100
		}
		p.ctl.SetFaderLevel(fader, f.Level+float64(ev.Encoder.Delta)*step)
	}
}

func (p *Panel) UpdateRemoteFaderState(fader int, level float64) {
	col, ok := p.column(fader)
	if !ok {
		return
	}
	if err := p.drawColumn(col); err != nil {
		p.log.Debug("draw column", "column", col, "error", err)
	}
}

func (p *Panel) UpdateRemoteAuxPanels() {
	if err := p.Refresh(); err != nil {
		p.log.Debug("refresh", "error", err)
	}
}

func (p *Panel) Refresh() error {
	for col := 0; col < p.dev.Model().KeyCols; col++ {
		if err := p.drawColumn(col); err != nil {
			return err
		}
	}
	return nil
}

func (p *Panel) label(fader int, f state.Fader) string {
	if f.Label != "" {
		return f.Label
	}
	return fmt.Sprintf("Fader %d", fader+1)
}

func (p *Panel) drawColumn(col int) error {
	m := p.dev.Model()
	fader := p.First + col
	f, ok := p.store.State().Fader(fader)
	for i, row := range p.rows() {
		key := i*m.KeyCols + col
		img := TextImage(m.KeySize, m.KeySize, color.Black, color.Black)
		if ok {
			var bg color.Color = keyOff
			if row.on(f) {
				bg = row.lit
			}
			img = TextImage(m.KeySize, m.KeySize, bg, keyText, row.name, p.label(fader, f))
		}
		if err := p.dev.SetKeyImage(key, img); err != nil {
			return err
		}
	}
	if m.Encoders == 0 || col >= m.Encoders || m.LCDWidth == 0 {
		return nil
	}
	w := m.LCDWidth / m.Encoders
	img := TextImage(w, m.LCDHeight, color.Black, color.Black)
	if ok {
		img = TextImage(w, m.LCDHeight, color.Black, keyText, p.label(fader, f), p.readout(f.Level))
	}
	return p.dev.SetLCDImage(col*w, 0, w, m.LCDHeight, img)
}

func (p *Panel) readout(level float64) string {
	db := p.proto.LevelToDB(level)
	if math.IsInf(db, -1) || db < -99 {
		return "-inf dB"
	}
	return fmt.Sprintf("%+.1f dB", db)
}
