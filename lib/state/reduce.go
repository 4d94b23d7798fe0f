package state

import "maps"

// Reduce returns the state after applying a. It never mutates s: touched
// slices are copied before they are written. Actions naming a fader or
// channel that does not exist leave the state unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetFaderLevel:
		return withFader(s, a.Fader, func(f *Fader) { f.Level = a.Level })
	case SetFaderLabel:
		return withFader(s, a.Fader, func(f *Fader) { f.Label = a.Label })
	case SetFaderVu:
		return withFader(s, a.Fader, func(f *Fader) { f.VuLevel = a.Level })
	case TogglePgm:
		return withFader(s, a.Fader, func(f *Fader) {
			f.PgmOn = !f.PgmOn
			f.VoOn = false
		})
	case ToggleVo:
		return withFader(s, a.Fader, func(f *Fader) {
			f.VoOn = !f.VoOn
			f.PgmOn = false
		})
	case SetPgm:
		return withFader(s, a.Fader, func(f *Fader) {
			f.PgmOn = a.On
			f.VoOn = false
		})
	case SetVo:
		return withFader(s, a.Fader, func(f *Fader) {
			f.VoOn = a.On
			f.PgmOn = false
		})
	case TogglePst:
		return withFader(s, a.Fader, func(f *Fader) {
			f.PstOn = !f.PstOn
			f.PstVoOn = false
		})
	case TogglePstVo:
		return withFader(s, a.Fader, func(f *Fader) {
			f.PstVoOn = !f.PstVoOn
			f.PstOn = false
		})
	case TogglePfl:
		return withFader(s, a.Fader, func(f *Fader) { f.PflOn = !f.PflOn })
	case ToggleMute:
		return withFader(s, a.Fader, func(f *Fader) { f.MuteOn = !f.MuteOn })
	case ToggleSlowFade:
		return withFader(s, a.Fader, func(f *Fader) { f.SlowFadeOn = !f.SlowFadeOn })
	case ToggleAMix:
		return withFader(s, a.Fader, func(f *Fader) { f.AMixOn = !f.AMixOn })
	case ToggleIgnoreAutomation:
		return withFader(s, a.Fader, func(f *Fader) { f.IgnoreAutomation = !f.IgnoreAutomation })
	case ToggleAllManual:
		manual := false
		for _, f := range s.Faders {
			if !f.IgnoreAutomation {
				manual = true
				break
			}
		}
		s.Faders = cloneFaders(s.Faders)
		for i := range s.Faders {
			s.Faders[i].IgnoreAutomation = manual
		}
		return s
	case SetFaderMonitor:
		return withFader(s, a.Fader, func(f *Fader) {
			f.Monitor = a.Aux
			if a.Aux < 0 {
				f.Monitor = Unassigned
			}
		})
	case NextMix:
		s.Faders = cloneFaders(s.Faders)
		for i := range s.Faders {
			f := &s.Faders[i]
			f.PgmOn, f.PstOn = f.PstOn, f.PgmOn
			f.VoOn, f.PstVoOn = f.PstVoOn, f.VoOn
		}
		return s
	case ClearPst:
		s.Faders = cloneFaders(s.Faders)
		for i := range s.Faders {
			s.Faders[i].PstOn = false
			s.Faders[i].PstVoOn = false
		}
		return s
	case SetInputGain:
		return withFader(s, a.Fader, func(f *Fader) { f.InputGain = a.Level })
	case SetInputSelector:
		return withFader(s, a.Fader, func(f *Fader) { f.InputSelector = a.Selected })
	case SetFx:
		return withFader(s, a.Fader, func(f *Fader) {
			fx := maps.Clone(f.Fx)
			if fx == nil {
				fx = map[FxParam]float64{}
			}
			fx[a.Param] = a.Level
			f.Fx = fx
		})
	case SetAssignedChannels:
		s.Faders = cloneFaders(s.Faders)
		for i := range s.Faders {
			s.Faders[i].AssignedChannels = a.Refs[i]
		}
		return s

	case SetOutputLevel:
		return withChannel(s, a.Mixer, a.Channel, func(c *Channel) { c.OutputLevel = a.Level })
	case FadeActive:
		return withChannel(s, a.Mixer, a.Channel, func(c *Channel) { c.FadeActive = a.Active })
	case SetAssignedFader:
		return withChannel(s, a.Mixer, a.Channel, func(c *Channel) {
			c.AssignedFader = a.Fader
			if a.Fader < 0 || a.Fader >= len(s.Faders) {
				c.AssignedFader = Unassigned
			}
		})
	case SetAuxLevel:
		return withChannel(s, a.Mixer, a.Channel, func(c *Channel) {
			if a.Aux < 0 || a.Aux >= len(c.AuxLevels) {
				return
			}
			c.AuxLevels = append([]float64(nil), c.AuxLevels...)
			c.AuxLevels[a.Aux] = a.Level
		})
	case SetChannelLabel:
		return withChannel(s, a.Mixer, a.Channel, func(c *Channel) { c.Label = a.Label })
	case SetChannelVu:
		return withChannel(s, a.Mixer, a.Channel, func(c *Channel) { c.VuLevel = a.Level })
	case ToggleSnap:
		return withChannel(s, a.Mixer, a.Channel, func(c *Channel) {
			if a.Snap < 0 || a.Snap >= len(c.SnapOn) {
				return
			}
			c.SnapOn = append([]bool(nil), c.SnapOn...)
			c.SnapOn[a.Snap] = !c.SnapOn[a.Snap]
		})
	case SetMixerOnline:
		if a.Mixer < 0 || a.Mixer >= len(s.Mixers) {
			return s
		}
		s.Mixers = append([]Mixer(nil), s.Mixers...)
		s.Mixers[a.Mixer].Online = a.Online
		return s
	}
	return s
}

func cloneFaders(faders []Fader) []Fader {
	return append([]Fader(nil), faders...)
}

func withFader(s State, i int, fn func(*Fader)) State {
	if i < 0 || i >= len(s.Faders) {
		return s
	}
	s.Faders = cloneFaders(s.Faders)
	fn(&s.Faders[i])
	return s
}

func withChannel(s State, mixer, ch int, fn func(*Channel)) State {
	if mixer < 0 || mixer >= len(s.Mixers) {
		return s
	}
	if ch < 0 || ch >= len(s.Mixers[mixer].Channels) {
		return s
	}
	s.Mixers = append([]Mixer(nil), s.Mixers...)
	m := &s.Mixers[mixer]
	m.Channels = append([]Channel(nil), m.Channels...)
	fn(&m.Channels[ch])
	return s
}
