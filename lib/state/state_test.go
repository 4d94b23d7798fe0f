package state

import "testing"

func testState() State {
	return New(Layout{Faders: 4, Channels: []int{6}, Aux: 2, Snaps: 2})
}

func TestNewDefaultAssignment(t *testing.T) {
	s := testState()
	if s.Session == "" {
		t.Error("expected session id")
	}
	for i, ch := range s.Mixers[0].Channels {
		want := i
		if i >= 4 {
			want = Unassigned
		}
		if ch.AssignedFader != want {
			t.Errorf("channel %d: got fader %d, want %d", i, ch.AssignedFader, want)
		}
		if len(ch.AuxLevels) != 2 {
			t.Errorf("channel %d: got %d aux levels, want 2", i, len(ch.AuxLevels))
		}
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := testState()
	next := Reduce(s, SetFaderLevel{Fader: 1, Level: 0.5})
	if s.Faders[1].Level != 0 {
		t.Errorf("input mutated: got %v", s.Faders[1].Level)
	}
	if next.Faders[1].Level != 0.5 {
		t.Errorf("got %v, want 0.5", next.Faders[1].Level)
	}

	next = Reduce(s, SetAuxLevel{Mixer: 0, Channel: 2, Aux: 1, Level: 0.3})
	if s.Mixers[0].Channels[2].AuxLevels[1] != 0 {
		t.Error("aux levels of input mutated")
	}
	if next.Mixers[0].Channels[2].AuxLevels[1] != 0.3 {
		t.Errorf("got %v, want 0.3", next.Mixers[0].Channels[2].AuxLevels[1])
	}

	next = Reduce(s, SetFx{Fader: 0, Param: "threshold", Level: -12})
	if s.Faders[0].Fx != nil {
		t.Error("fx map of input mutated")
	}
	if next.Faders[0].Fx["threshold"] != -12 {
		t.Errorf("got %v, want -12", next.Faders[0].Fx["threshold"])
	}
}

func TestToggleOnAirIsExclusive(t *testing.T) {
	s := testState()
	s = Reduce(s, TogglePgm{Fader: 0})
	if !s.Faders[0].PgmOn || s.Faders[0].VoOn {
		t.Fatalf("after pgm: %+v", s.Faders[0])
	}
	s = Reduce(s, ToggleVo{Fader: 0})
	if s.Faders[0].PgmOn || !s.Faders[0].VoOn {
		t.Fatalf("after vo: %+v", s.Faders[0])
	}
	if !s.Faders[0].OnAir() {
		t.Error("expected fader on air")
	}
	s = Reduce(s, ToggleVo{Fader: 0})
	if s.Faders[0].OnAir() {
		t.Error("expected fader off air")
	}
}

func TestNextMixSwapsPreset(t *testing.T) {
	s := testState()
	s = Reduce(s, TogglePgm{Fader: 0})
	s = Reduce(s, TogglePst{Fader: 1})
	s = Reduce(s, TogglePstVo{Fader: 2})
	s = Reduce(s, NextMix{})

	if s.Faders[0].PgmOn || !s.Faders[0].PstOn {
		t.Errorf("fader 0: %+v", s.Faders[0])
	}
	if !s.Faders[1].PgmOn || s.Faders[1].PstOn {
		t.Errorf("fader 1: %+v", s.Faders[1])
	}
	if !s.Faders[2].VoOn || s.Faders[2].PstVoOn {
		t.Errorf("fader 2: %+v", s.Faders[2])
	}

	s = Reduce(s, ClearPst{})
	if s.Faders[0].PstOn {
		t.Error("expected preset cleared")
	}
}

func TestAssignOutOfRangeClears(t *testing.T) {
	s := testState()
	for _, f := range []int{-1, -7, 4, 100} {
		next := Reduce(s, SetAssignedFader{Mixer: 0, Channel: 1, Fader: f})
		if got := next.Mixers[0].Channels[1].AssignedFader; got != Unassigned {
			t.Errorf("fader %d: got %d, want unassigned", f, got)
		}
	}
	next := Reduce(s, SetAssignedFader{Mixer: 0, Channel: 5, Fader: 2})
	if got := next.Mixers[0].Channels[5].AssignedFader; got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestUnknownIndicesAreInert(t *testing.T) {
	s := testState()
	for _, a := range []Action{
		SetFaderLevel{Fader: 9, Level: 1},
		SetOutputLevel{Mixer: 0, Channel: 42, Level: 1},
		SetOutputLevel{Mixer: 3, Channel: 0, Level: 1},
		SetMixerOnline{Mixer: 2, Online: true},
	} {
		next := Reduce(s, a)
		if &next.Faders[0] != &s.Faders[0] || &next.Mixers[0] != &s.Mixers[0] {
			t.Errorf("%T: expected state to be untouched", a)
		}
	}

	next := Reduce(s, SetAuxLevel{Mixer: 0, Channel: 0, Aux: 5, Level: 1})
	if len(next.Mixers[0].Channels[0].AuxLevels) != 2 {
		t.Errorf("got %v", next.Mixers[0].Channels[0].AuxLevels)
	}
}

func TestStoreSubscribe(t *testing.T) {
	st := NewStore(testState())

	var got []float64
	unsub := st.Subscribe(func(s State) {
		got = append(got, s.Mixers[0].Channels[0].OutputLevel)
	})

	st.Dispatch(SetOutputLevel{Mixer: 0, Channel: 0, Level: 0.25})
	st.Dispatch(FadeActive{Mixer: 0, Channel: 0, Active: true})
	unsub()
	st.Dispatch(SetOutputLevel{Mixer: 0, Channel: 0, Level: 0.5})

	if len(got) != 2 || got[0] != 0.25 || got[1] != 0.25 {
		t.Errorf("got %v, want [0.25 0.25]", got)
	}
	ch, _ := st.State().Channel(0, 0)
	if ch.OutputLevel != 0.5 || !ch.FadeActive {
		t.Errorf("got %+v", ch)
	}
}

func TestSetAssignedChannels(t *testing.T) {
	s := testState()
	s = Reduce(s, SetAssignedChannels{Refs: map[int][]ChannelRef{
		2: {{Mixer: 0, Channel: 2}, {Mixer: 0, Channel: 4}},
	}})
	if len(s.Faders[2].AssignedChannels) != 2 {
		t.Errorf("got %v", s.Faders[2].AssignedChannels)
	}
	if s.Faders[0].AssignedChannels != nil {
		t.Errorf("got %v, want nil", s.Faders[0].AssignedChannels)
	}
}

func TestFaderModes(t *testing.T) {
	s := testState()
	if s.Faders[0].Monitor != Unassigned {
		t.Fatalf("got monitor %d, want none", s.Faders[0].Monitor)
	}
	s = Reduce(s, ToggleSlowFade{Fader: 0})
	s = Reduce(s, ToggleAMix{Fader: 1})
	s = Reduce(s, SetFaderMonitor{Fader: 2, Aux: 1})
	if !s.Faders[0].SlowFadeOn || !s.Faders[1].AMixOn || s.Faders[2].Monitor != 1 {
		t.Errorf("got %+v", s.Faders[:3])
	}
	s = Reduce(s, SetFaderMonitor{Fader: 2, Aux: -7})
	if s.Faders[2].Monitor != Unassigned {
		t.Errorf("got monitor %d, want none", s.Faders[2].Monitor)
	}
}

func TestToggleAllManual(t *testing.T) {
	s := testState()
	s = Reduce(s, ToggleIgnoreAutomation{Fader: 1})
	s = Reduce(s, ToggleAllManual{})
	for i, f := range s.Faders {
		if !f.IgnoreAutomation {
			t.Fatalf("fader %d still automated", i)
		}
	}
	s = Reduce(s, ToggleAllManual{})
	for i, f := range s.Faders {
		if f.IgnoreAutomation {
			t.Fatalf("fader %d still manual", i)
		}
	}
}
