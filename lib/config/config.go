package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"faderbridge/lib/mixer"
	"faderbridge/lib/state"
)

const EnvPath = "FADERBRIDGE_CONFIG"

type Mixer struct {
	Protocol  string `yaml:"protocol"`
	Host      string `yaml:"host,omitempty"`
	Port      int    `yaml:"port,omitempty"`
	Transport string `yaml:"transport,omitempty"`
	MidiIn    string `yaml:"midiIn,omitempty"`
	MidiOut   string `yaml:"midiOut,omitempty"`
	Channels  int    `yaml:"channels"`
}

func (m Mixer) Endpoint() mixer.Endpoint {
	return mixer.Endpoint{
		Host:      m.Host,
		Port:      m.Port,
		Transport: m.Transport,
		MidiIn:    m.MidiIn,
		MidiOut:   m.MidiOut,
		Channels:  m.Channels,
	}
}

type XTouch struct {
	Port  string `yaml:"port"`
	First int    `yaml:"first"`
}

type StreamDeck struct {
	Enabled    bool `yaml:"enabled"`
	First      int  `yaml:"first"`
	Brightness int  `yaml:"brightness"`
}

type Settings struct {
	Listen          string        `yaml:"listen"`
	PresetDir       string        `yaml:"presetDir,omitempty"`
	Faders          int           `yaml:"faders"`
	Aux             int           `yaml:"aux"`
	Snaps           int           `yaml:"snaps"`
	FadeTime        time.Duration `yaml:"fadeTime"`
	VoFadeTime      time.Duration `yaml:"voFadeTime"`
	SlowFadeTime    time.Duration `yaml:"slowFadeTime"`
	VoLevel         float64       `yaml:"voLevel"`
	AutoResetLevel  float64       `yaml:"autoResetLevel"`
	ProtocolLatency time.Duration `yaml:"protocolLatency"`
	Mixers          []Mixer       `yaml:"mixers"`
	XTouch          []XTouch      `yaml:"xtouch,omitempty"`
	StreamDeck      StreamDeck    `yaml:"streamdeck"`
}

func Default() Settings {
	fade := mixer.DefaultSettings()
	return Settings{
		Listen:          ":8080",
		Faders:          24,
		Aux:             6,
		FadeTime:        fade.FadeTime,
		VoFadeTime:      fade.VoFadeTime,
		SlowFadeTime:    fade.SlowFadeTime,
		VoLevel:         fade.VoLevel,
		AutoResetLevel:  fade.AutoResetLevel,
		ProtocolLatency: fade.ProtocolLatency,
		Mixers:          []Mixer{{Protocol: "genericMidi", Channels: 24}},
		StreamDeck:      StreamDeck{Brightness: 60},
	}
}

// Path picks the settings file: the flag value, then the environment.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvPath)
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Settings, error) {
	if path == "" {
		s := Default()
		return s, s.Validate()
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	return Parse(buf)
}

func Parse(buf []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(buf, &s); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func clampPercent(v float64) float64 {
	return min(max(v, 0), 100)
}

// Validate rejects settings nothing can run with and clamps percentages.
func (s *Settings) Validate() error {
	var errs []error
	if s.Faders <= 0 {
		errs = append(errs, fmt.Errorf("faders must be positive, got %d", s.Faders))
	}
	if s.Aux < 0 || s.Snaps < 0 {
		errs = append(errs, fmt.Errorf("aux and snaps must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"fadeTime":        s.FadeTime,
		"voFadeTime":      s.VoFadeTime,
		"slowFadeTime":    s.SlowFadeTime,
		"protocolLatency": s.ProtocolLatency,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", name, d))
		}
	}
	s.VoLevel = clampPercent(s.VoLevel)
	s.AutoResetLevel = clampPercent(s.AutoResetLevel)
	if len(s.Mixers) == 0 {
		errs = append(errs, fmt.Errorf("at least one mixer is required"))
	}
	for i, m := range s.Mixers {
		if m.Channels <= 0 {
			errs = append(errs, fmt.Errorf("mixer %d: channels must be positive, got %d", i, m.Channels))
		}
	}
	s.StreamDeck.Brightness = min(max(s.StreamDeck.Brightness, 0), 100)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (s Settings) Fade() mixer.Settings {
	return mixer.Settings{
		FadeTime:        s.FadeTime,
		VoFadeTime:      s.VoFadeTime,
		SlowFadeTime:    s.SlowFadeTime,
		VoLevel:         s.VoLevel,
		AutoResetLevel:  s.AutoResetLevel,
		ProtocolLatency: s.ProtocolLatency,
	}
}

func (s Settings) Layout() state.Layout {
	l := state.Layout{Faders: s.Faders, Aux: s.Aux, Snaps: s.Snaps}
	for _, m := range s.Mixers {
		l.Channels = append(l.Channels, m.Channels)
	}
	return l
}
