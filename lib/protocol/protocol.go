package protocol

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"gopkg.in/yaml.v3"
)

const DefaultPreset = "genericMidi"

type Mode string

const (
	ModeMaster Mode = "master"
	ModeClient Mode = "client"
)

type MessageKind string

const (
	ChannelOutGain       MessageKind = "CHANNEL_OUT_GAIN"
	ChannelFaderLevel    MessageKind = "CHANNEL_FADER_LEVEL"
	PflOn                MessageKind = "PFL_ON"
	PflOff               MessageKind = "PFL_OFF"
	ChannelMuteOn        MessageKind = "CHANNEL_MUTE_ON"
	ChannelMuteOff       MessageKind = "CHANNEL_MUTE_OFF"
	ChannelAMixOn        MessageKind = "CHANNEL_AMIX_ON"
	ChannelAMixOff       MessageKind = "CHANNEL_AMIX_OFF"
	AuxLevel             MessageKind = "AUX_LEVEL"
	NextSend             MessageKind = "NEXT_SEND"
	ChannelName          MessageKind = "CHANNEL_NAME"
	ChannelVu            MessageKind = "CHANNEL_VU"
	ChannelInputGain     MessageKind = "CHANNEL_INPUT_GAIN"
	ChannelInputSelector MessageKind = "CHANNEL_INPUT_SELECTOR"
	FxParam              MessageKind = "FX_PARAM"
)

// Range describes a level scale. Zero is the unity reference the auto-reset
// rule snaps to.
type Range struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Zero float64 `yaml:"zero" json:"zero"`
	Step float64 `yaml:"step" json:"step"`
}

type MeterRange struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Zero float64 `yaml:"zero" json:"zero"`
	Test float64 `yaml:"test" json:"test"`
}

// Command is one wire message template. Message is an OSC address or a
// decimal MIDI controller number; "none" disables it.
type Command struct {
	Message string  `yaml:"message" json:"message"`
	Value   float64 `yaml:"value,omitempty" json:"value,omitempty"`
	Type    string  `yaml:"type,omitempty" json:"type,omitempty"`
	Min     float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max     float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

func (c Command) Disabled() bool {
	return c.Message == "" || c.Message == "none"
}

// Address expands the 1-based {channel} and {aux} placeholders.
func (c Command) Address(channel, aux, digits int) string {
	r := strings.NewReplacer(
		"{channel}", pad(channel, digits),
		"{aux}", pad(aux, 2),
	)
	return r.Replace(c.Message)
}

// Scale maps a level on r onto the command's wire range. Commands without a
// wire range pass the level through.
func (c Command) Scale(level float64, r Range) float64 {
	if c.Max == c.Min || r.Max == r.Min {
		return level
	}
	norm := (core.Clamp(level, r.Min, r.Max) - r.Min) / (r.Max - r.Min)
	return c.Min + norm*(c.Max-c.Min)
}

// Unscale is the inverse of Scale.
func (c Command) Unscale(wire float64, r Range) float64 {
	if c.Max == c.Min || r.Max == r.Min {
		return core.Clamp(wire, r.Min, r.Max)
	}
	norm := (core.Clamp(wire, c.Min, c.Max) - c.Min) / (c.Max - c.Min)
	return r.Min + norm*(r.Max-r.Min)
}

func pad(n, digits int) string {
	s := strconv.Itoa(n)
	for len(s) < digits {
		s = "0" + s
	}
	return s
}

type MixerProtocol struct {
	Name          string                    `yaml:"name" json:"name"`
	Protocol      string                    `yaml:"protocol" json:"protocol"`
	Label         string                    `yaml:"label" json:"label"`
	Mode          Mode                      `yaml:"mode" json:"mode"`
	ChannelDigits int                       `yaml:"channelDigits,omitempty" json:"channelDigits,omitempty"`
	PingTime      int                       `yaml:"pingTime" json:"pingTime"`
	PingCommands  []Command                 `yaml:"pingCommands,omitempty" json:"pingCommands,omitempty"`
	Fader         Range                     `yaml:"fader" json:"fader"`
	OutputGain    Range                     `yaml:"outputGain" json:"outputGain"`
	Meter         MeterRange                `yaml:"meter" json:"meter"`
	ToMixer       map[MessageKind][]Command `yaml:"toMixer" json:"toMixer"`
	FromMixer     map[MessageKind][]Command `yaml:"fromMixer" json:"fromMixer"`
}

func (p *MixerProtocol) PingInterval() time.Duration {
	return time.Duration(p.PingTime) * time.Millisecond
}

// To returns the first outbound command for kind, if any is enabled.
func (p *MixerProtocol) To(kind MessageKind) (Command, bool) {
	return first(p.ToMixer[kind])
}

func (p *MixerProtocol) From(kind MessageKind) (Command, bool) {
	return first(p.FromMixer[kind])
}

func first(cmds []Command) (Command, bool) {
	if len(cmds) == 0 || cmds[0].Disabled() {
		return Command{}, false
	}
	return cmds[0], true
}

func (p *MixerProtocol) ClampFader(level float64) float64 {
	if math.IsNaN(level) {
		return p.Fader.Min
	}
	return core.Clamp(level, p.Fader.Min, p.Fader.Max)
}

func (p *MixerProtocol) ClampOutput(level float64) float64 {
	if math.IsNaN(level) {
		return p.OutputGain.Min
	}
	return core.Clamp(level, p.OutputGain.Min, p.OutputGain.Max)
}

// ClampMeter fits an inbound VU reading into the meter range, 0..1 when the
// protocol leaves it unset. NaN readings are rejected.
func (p *MixerProtocol) ClampMeter(level float64) (float64, bool) {
	if math.IsNaN(level) {
		return 0, false
	}
	lo, hi := p.Meter.Min, p.Meter.Max
	if hi <= lo {
		lo, hi = 0, 1
	}
	return core.Clamp(level, lo, hi), true
}

// LevelToDB renders a fader level relative to the zero reference, for panel
// read-outs.
func (p *MixerProtocol) LevelToDB(level float64) float64 {
	span := p.Fader.Zero - p.Fader.Min
	if span <= 0 {
		return math.Inf(-1)
	}
	return core.LinearToDB((p.ClampFader(level) - p.Fader.Min) / span)
}

func (p *MixerProtocol) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("protocol: preset has no name")
	}
	if p.Protocol == "" {
		return fmt.Errorf("protocol: preset %q has no protocol", p.Name)
	}
	if p.Fader.Max <= p.Fader.Min {
		return fmt.Errorf("protocol: preset %q: fader max %v <= min %v", p.Name, p.Fader.Max, p.Fader.Min)
	}
	if p.OutputGain.Max <= p.OutputGain.Min {
		return fmt.Errorf("protocol: preset %q: output gain max %v <= min %v", p.Name, p.OutputGain.Max, p.OutputGain.Min)
	}
	if p.Mode == "" {
		p.Mode = ModeMaster
	}
	return nil
}

var presets = map[string]*MixerProtocol{}

func Register(p *MixerProtocol) error {
	if err := p.Validate(); err != nil {
		return err
	}
	presets[p.Name] = p
	return nil
}

func Lookup(name string) (*MixerProtocol, bool) {
	p, ok := presets[name]
	return p, ok
}

// Resolve returns the named preset, or the default preset when the name is
// unknown.
func Resolve(name string) (*MixerProtocol, bool) {
	if p, ok := presets[name]; ok {
		return p, true
	}
	return presets[DefaultPreset], false
}

func Names() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Parse(buf []byte) (*MixerProtocol, error) {
	var p MixerProtocol
	if err := yaml.Unmarshal(buf, &p); err != nil {
		return nil, fmt.Errorf("protocol: parse: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadDir registers every *.yaml preset in dir and returns their names.
func LoadDir(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, path := range paths {
		buf, err := os.ReadFile(path)
		if err != nil {
			return names, fmt.Errorf("protocol: %w", err)
		}
		p, err := Parse(buf)
		if err != nil {
			return names, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if err := Register(p); err != nil {
			return names, err
		}
		names = append(names, p.Name)
	}
	return names, nil
}
