package protocol

var genericMidi = &MixerProtocol{
	Name:       "genericMidi",
	Protocol:   "MIDI",
	Label:      "Generic MIDI",
	Mode:       ModeMaster,
	Fader:      Range{Min: 0, Max: 127, Zero: 100, Step: 1},
	OutputGain: Range{Min: 0, Max: 127, Zero: 100, Step: 1},
	Meter:      MeterRange{Min: 0, Max: 1, Zero: 0.75, Test: 0.6},
	ToMixer: map[MessageKind][]Command{
		ChannelOutGain: {{Message: "0", Min: 0, Max: 127}},
		PflOn:          {{Message: "90", Value: 127}},
		PflOff:         {{Message: "90", Value: 0}},
		ChannelName:    {{Message: "none"}},
	},
	FromMixer: map[MessageKind][]Command{
		ChannelOutGain: {{Message: "0", Min: 0, Max: 127}},
	},
}

var behringerXr = &MixerProtocol{
	Name:          "behringerXr",
	Protocol:      "OSC",
	Label:         "Behringer XR 12/16/18",
	Mode:          ModeMaster,
	ChannelDigits: 2,
	PingTime:      9500,
	PingCommands:  []Command{{Message: "/xremote"}},
	Fader:         Range{Min: 0, Max: 1, Zero: 0.75, Step: 0.01},
	OutputGain:    Range{Min: 0, Max: 1, Zero: 0.75, Step: 0.01},
	Meter:         MeterRange{Min: 0, Max: 1, Zero: 0.75, Test: 0.6},
	ToMixer: map[MessageKind][]Command{
		ChannelOutGain:       {{Message: "/ch/{channel}/mix/fader", Type: "f"}},
		PflOn:                {{Message: "/-stat/solosw/{channel}", Value: 1, Type: "i"}},
		PflOff:               {{Message: "/-stat/solosw/{channel}", Value: 0, Type: "i"}},
		ChannelMuteOn:        {{Message: "/ch/{channel}/mix/on", Value: 0, Type: "i"}},
		ChannelMuteOff:       {{Message: "/ch/{channel}/mix/on", Value: 1, Type: "i"}},
		ChannelAMixOn:        {{Message: "/ch/{channel}/automix/group", Value: 1, Type: "i"}},
		ChannelAMixOff:       {{Message: "/ch/{channel}/automix/group", Value: 0, Type: "i"}},
		AuxLevel:             {{Message: "/ch/{channel}/mix/{aux}/level", Type: "f"}},
		NextSend:             {{Message: "/ch/{channel}/mix/06/level", Type: "f"}},
		ChannelName:          {{Message: "/ch/{channel}/config/name", Type: "s"}},
		ChannelInputGain:     {{Message: "/headamp/{channel}/gain", Type: "f"}},
		ChannelInputSelector: {{Message: "/ch/{channel}/config/insrc", Type: "i"}},
		FxParam:              {{Message: "/ch/{channel}/dyn/thr", Type: "f"}},
	},
	FromMixer: map[MessageKind][]Command{
		ChannelOutGain: {{Message: "/ch/{channel}/mix/fader", Type: "f"}},
		ChannelName:    {{Message: "/ch/{channel}/config/name", Type: "s"}},
	},
}

var reaper = &MixerProtocol{
	Name:       "reaper",
	Protocol:   "OSC",
	Label:      "Reaper DAW",
	Mode:       ModeMaster,
	Fader:      Range{Min: 0, Max: 1, Zero: 0.75, Step: 0.01},
	OutputGain: Range{Min: 0, Max: 1, Zero: 0.75, Step: 0.01},
	Meter:      MeterRange{Min: 0, Max: 1, Zero: 0.75, Test: 0.6},
	ToMixer: map[MessageKind][]Command{
		ChannelOutGain: {{Message: "/track/{channel}/volume", Type: "f"}},
		PflOn:          {{Message: "/track/{channel}/solo", Value: 1, Type: "i"}},
		PflOff:         {{Message: "/track/{channel}/solo", Value: 0, Type: "i"}},
		ChannelMuteOn:  {{Message: "/track/{channel}/mute", Value: 1, Type: "i"}},
		ChannelMuteOff: {{Message: "/track/{channel}/mute", Value: 0, Type: "i"}},
		AuxLevel:       {{Message: "/track/{channel}/send/{aux}/volume", Type: "f"}},
		ChannelName:    {{Message: "/track/{channel}/name", Type: "s"}},
	},
	FromMixer: map[MessageKind][]Command{
		ChannelOutGain: {{Message: "/track/{channel}/volume", Type: "f"}},
		ChannelName:    {{Message: "/track/{channel}/name", Type: "s"}},
		ChannelVu:      {{Message: "/track/{channel}/vu", Type: "f"}},
	},
}

func init() {
	for _, p := range []*MixerProtocol{genericMidi, behringerXr, reaper} {
		if err := Register(p); err != nil {
			panic(err)
		}
	}
}
