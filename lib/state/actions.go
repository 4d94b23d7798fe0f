package state

type Action interface {
	action()
}

type SetFaderLevel struct {
	Fader int
	Level float64
}

type SetFaderLabel struct {
	Fader int
	Label string
}

type SetFaderVu struct {
	Fader int
	Level float64
}

type TogglePgm struct{ Fader int }
type ToggleVo struct{ Fader int }
type TogglePst struct{ Fader int }
type TogglePstVo struct{ Fader int }
type TogglePfl struct{ Fader int }
type ToggleMute struct{ Fader int }
type ToggleSlowFade struct{ Fader int }
type ToggleAMix struct{ Fader int }
type ToggleIgnoreAutomation struct{ Fader int }

// ToggleAllManual sets IgnoreAutomation on every fader, or clears it when
// every fader already has it.
type ToggleAllManual struct{}

// SetFaderMonitor picks the aux bus the fader is monitored on. Unassigned
// or any negative value turns monitoring off.
type SetFaderMonitor struct {
	Fader int
	Aux   int
}

type SetPgm struct {
	Fader int
	On    bool
}

type SetVo struct {
	Fader int
	On    bool
}

// NextMix swaps the preset flags into program.
type NextMix struct{}

type ClearPst struct{}

type SetInputGain struct {
	Fader int
	Level float64
}

type SetInputSelector struct {
	Fader    int
	Selected int
}

type SetFx struct {
	Fader int
	Param FxParam
	Level float64
}

type SetOutputLevel struct {
	Mixer   int
	Channel int
	Level   float64
}

type FadeActive struct {
	Mixer   int
	Channel int
	Active  bool
}

type SetAssignedFader struct {
	Mixer   int
	Channel int
	Fader   int
}

// SetAssignedChannels replaces the derived fader -> channels lists.
type SetAssignedChannels struct {
	Refs map[int][]ChannelRef
}

type SetAuxLevel struct {
	Mixer   int
	Channel int
	Aux     int
	Level   float64
}

type SetChannelLabel struct {
	Mixer   int
	Channel int
	Label   string
}

type SetChannelVu struct {
	Mixer   int
	Channel int
	Level   float64
}

type ToggleSnap struct {
	Mixer   int
	Channel int
	Snap    int
}

type SetMixerOnline struct {
	Mixer  int
	Online bool
}

func (SetFaderLevel) action()          {}
func (SetFaderLabel) action()          {}
func (SetFaderVu) action()             {}
func (TogglePgm) action()              {}
func (ToggleVo) action()               {}
func (TogglePst) action()              {}
func (TogglePstVo) action()            {}
func (TogglePfl) action()              {}
func (ToggleMute) action()             {}
func (ToggleSlowFade) action()         {}
func (ToggleAMix) action()             {}
func (ToggleIgnoreAutomation) action() {}
func (ToggleAllManual) action()        {}
func (SetFaderMonitor) action()        {}
func (SetPgm) action()                 {}
func (SetVo) action()                  {}
func (NextMix) action()                {}
func (ClearPst) action()               {}
func (SetInputGain) action()           {}
func (SetInputSelector) action()       {}
func (SetFx) action()                  {}
func (SetOutputLevel) action()         {}
func (FadeActive) action()             {}
func (SetAssignedFader) action()       {}
func (SetAssignedChannels) action()    {}
func (SetAuxLevel) action()            {}
func (SetChannelLabel) action()        {}
func (SetChannelVu) action()           {}
func (ToggleSnap) action()             {}
func (SetMixerOnline) action()         {}
