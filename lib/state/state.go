package state

import (
	"github.com/google/uuid"
)

// Unassigned marks a channel that follows no fader.
const Unassigned = -1

type FxParam string

type ChannelRef struct {
	Mixer   int `json:"mixer"`
	Channel int `json:"channel"`
}

type Fader struct {
	Level            float64             `json:"faderLevel"`
	PgmOn            bool                `json:"pgmOn"`
	VoOn             bool                `json:"voOn"`
	PstOn            bool                `json:"pstOn"`
	PstVoOn          bool                `json:"pstVoOn"`
	PflOn            bool                `json:"pflOn"`
	MuteOn           bool                `json:"muteOn"`
	SlowFadeOn       bool                `json:"slowFadeOn"`
	AMixOn           bool                `json:"amixOn"`
	IgnoreAutomation bool                `json:"ignoreAutomation"`
	Monitor          int                 `json:"monitor"`
	Label            string              `json:"label"`
	InputGain        float64             `json:"inputGain"`
	InputSelector    int                 `json:"inputSelector"`
	Fx               map[FxParam]float64 `json:"fx,omitempty"`
	VuLevel          float64             `json:"vuVal"`
	AssignedChannels []ChannelRef        `json:"assignedChannels,omitempty"`
}

// OnAir reports whether channels following the fader should be faded up.
func (f Fader) OnAir() bool {
	return f.PgmOn || f.VoOn
}

type Channel struct {
	AssignedFader int       `json:"assignedFader"`
	OutputLevel   float64   `json:"outputLevel"`
	FadeActive    bool      `json:"fadeActive"`
	VuLevel       float64   `json:"vuVal"`
	AuxLevels     []float64 `json:"auxLevel"`
	Label         string    `json:"label"`
	SnapOn        []bool    `json:"snapOn,omitempty"`
}

type Mixer struct {
	Online   bool      `json:"mixerOnline"`
	Channels []Channel `json:"channel"`
}

type State struct {
	Session string  `json:"session"`
	Faders  []Fader `json:"faders"`
	Mixers  []Mixer `json:"mixers"`
}

type Layout struct {
	Faders   int
	Channels []int // per mixer
	Aux      int
	Snaps    int
}

// New builds the initial state. Channel i follows fader i while there are
// faders left; the rest start unassigned.
func New(l Layout) State {
	s := State{
		Session: uuid.NewString(),
		Faders:  make([]Fader, l.Faders),
	}
	for i := range s.Faders {
		s.Faders[i].Monitor = Unassigned
	}
	for _, n := range l.Channels {
		m := Mixer{Channels: make([]Channel, n)}
		for i := range m.Channels {
			ch := &m.Channels[i]
			ch.AssignedFader = Unassigned
			if i < l.Faders {
				ch.AssignedFader = i
			}
			ch.AuxLevels = make([]float64, l.Aux)
			if l.Snaps > 0 {
				ch.SnapOn = make([]bool, l.Snaps)
			}
		}
		s.Mixers = append(s.Mixers, m)
	}
	return s
}

func (s State) Fader(i int) (Fader, bool) {
	if i < 0 || i >= len(s.Faders) {
		return Fader{}, false
	}
	return s.Faders[i], true
}

func (s State) Channel(mixer, ch int) (Channel, bool) {
	if mixer < 0 || mixer >= len(s.Mixers) {
		return Channel{}, false
	}
	chans := s.Mixers[mixer].Channels
	if ch < 0 || ch >= len(chans) {
		return Channel{}, false
	}
	return chans[ch], true
}

func (s State) ChannelCount(mixer int) int {
	if mixer < 0 || mixer >= len(s.Mixers) {
		return 0
	}
	return len(s.Mixers[mixer].Channels)
}
