package midimixer

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"gitlab.com/gomidi/midi/v2"

	"faderbridge/lib/mixer"
	"faderbridge/lib/protocol"
)

// ChannelSpan is how many controllers above the base CC are read back as
// channel faders.
const ChannelSpan = 24

func init() {
	mixer.Register("MIDI", func(desc *protocol.MixerProtocol, ep mixer.Endpoint, in mixer.Inbound, log *slog.Logger) (mixer.Adapter, error) {
		return Open(desc, ep, in, log)
	})
}

type Mixer struct {
	desc    *protocol.MixerProtocol
	in      mixer.Inbound
	log     *slog.Logger
	send    func(msg midi.Message) error
	stop    func()
	Channel uint8

	unsupported sync.Map
}

func Open(desc *protocol.MixerProtocol, ep mixer.Endpoint, in mixer.Inbound, log *slog.Logger) (*Mixer, error) {
	out, err := midi.FindOutPort(ep.MidiOut)
	if err != nil {
		return nil, fmt.Errorf("midimixer: output port %q: %w", ep.MidiOut, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("midimixer: open output port: %w", err)
	}
	m := New(desc, send, in, log)

	if ep.MidiIn != "" {
		inPort, err := midi.FindInPort(ep.MidiIn)
		if err != nil {
			return nil, fmt.Errorf("midimixer: input port %q: %w", ep.MidiIn, err)
		}
		m.stop, err = midi.ListenTo(inPort, m.Receive)
		if err != nil {
			return nil, fmt.Errorf("midimixer: listen: %w", err)
		}
	}
	if in != nil {
		in.MixerOnline(true)
	}
	return m, nil
}

// New wraps an already opened output. Tests pass a recording send func.
func New(desc *protocol.MixerProtocol, send func(msg midi.Message) error, in mixer.Inbound, log *slog.Logger) *Mixer {
	if log == nil {
		log = slog.Default()
	}
	return &Mixer{desc: desc, in: in, log: log, send: send}
}

func (m *Mixer) Close() error {
	if m.stop != nil {
		m.stop()
	}
	return nil
}

func controller(cmd protocol.Command, ch int) (uint8, error) {
	base, err := strconv.Atoi(cmd.Message)
	if err != nil {
		return 0, fmt.Errorf("midimixer: bad controller %q", cmd.Message)
	}
	cc := base + ch
	if cc < 0 || cc > 127 {
		return 0, fmt.Errorf("midimixer: channel %d maps to controller %d", ch, cc)
	}
	return uint8(cc), nil
}

func value(v float64) uint8 {
	return uint8(math.Max(0, math.Min(127, math.Round(v))))
}

func (m *Mixer) sendCC(kind protocol.MessageKind, ch int, v float64) error {
	cmd, ok := m.desc.To(kind)
	if !ok {
		return nil
	}
	cc, err := controller(cmd, ch)
	if err != nil {
		return err
	}
	return m.send(midi.ControlChange(m.Channel, cc, value(v)))
}

func (m *Mixer) SendOutputLevel(ch int, level float64) error {
	cmd, ok := m.desc.To(protocol.ChannelOutGain)
	if !ok {
		return nil
	}
	return m.sendCC(protocol.ChannelOutGain, ch, cmd.Scale(level, m.desc.OutputGain))
}

func (m *Mixer) SendPflState(ch int, on bool) error {
	kind := protocol.PflOff
	if on {
		kind = protocol.PflOn
	}
	cmd, ok := m.desc.To(kind)
	if !ok {
		return nil
	}
	return m.sendCC(kind, ch, cmd.Value)
}

// SendMuteState is not carried over MIDI.
func (m *Mixer) SendMuteState(ch int, on bool) error {
	m.skip("mute")
	return nil
}

// SendAuxLevel is not carried over MIDI.
func (m *Mixer) SendAuxLevel(ch, aux int, level float64) error {
	m.skip("aux level")
	return nil
}

func (m *Mixer) SendChannelName(ch int, name string) error {
	m.skip("channel name")
	return nil
}

func (m *Mixer) Ping() error {
	return nil
}

func (m *Mixer) skip(what string) {
	if _, loaded := m.unsupported.LoadOrStore(what, true); !loaded {
		m.log.Info("not supported over MIDI, ignoring", "message", what)
	}
}

// Receive handles one inbound message. Controllers from the base CC up to
// ChannelSpan above it are desk faders.
func (m *Mixer) Receive(msg midi.Message, timestampms int32) {
	var channel, cc, val uint8
	if !msg.GetControlChange(&channel, &cc, &val) || channel != m.Channel {
		return
	}
	cmd, ok := m.desc.From(protocol.ChannelOutGain)
	if !ok || m.in == nil {
		return
	}
	base, err := strconv.Atoi(cmd.Message)
	if err != nil {
		return
	}
	ch := int(cc) - base
	if ch < 0 || ch > ChannelSpan {
		return
	}
	m.log.Debug("fader from mixer", "channel", ch, "value", val)
	m.in.MixerFaderLevel(ch, cmd.Unscale(float64(val), m.desc.Fader))
}
