package oscmixer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"faderbridge/lib/mixer"
	"faderbridge/lib/osc"
	"faderbridge/lib/protocol"
)

const DefaultPort = 10024

func init() {
	mixer.Register("OSC", func(desc *protocol.MixerProtocol, ep mixer.Endpoint, in mixer.Inbound, log *slog.Logger) (mixer.Adapter, error) {
		return Dial(desc, ep, in, log)
	})
}

type Mixer struct {
	desc   *protocol.MixerProtocol
	in     mixer.Inbound
	log    *slog.Logger
	conn   net.Conn
	stream bool
	mu     sync.Mutex
	online atomic.Bool
	closed atomic.Bool
}

func Dial(desc *protocol.MixerProtocol, ep mixer.Endpoint, in mixer.Inbound, log *slog.Logger) (*Mixer, error) {
	if log == nil {
		log = slog.Default()
	}
	port := ep.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(ep.Host, strconv.Itoa(port))

	m := &Mixer{desc: desc, in: in, log: log}
	var err error
	switch ep.Transport {
	case "", "udp":
		m.conn, err = net.Dial("udp", addr)
	case "tcp":
		m.conn, err = net.DialTimeout("tcp", addr, 5*time.Second)
		m.stream = true
	default:
		return nil, fmt.Errorf("oscmixer: unknown transport %q", ep.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("oscmixer: dial %s: %w", addr, err)
	}
	go m.readLoop()

	if err := m.Ping(); err != nil {
		log.Debug("initial ping", "error", err)
	}
	return m, nil
}

func (m *Mixer) Close() error {
	m.closed.Store(true)
	return m.conn.Close()
}

func (m *Mixer) send(addr string, args ...any) error {
	buf, err := osc.Message{Address: addr, Args: args}.MarshalBinary()
	if err != nil {
		return err
	}
	if m.stream {
		buf = osc.Frame(buf)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.conn.Write(buf); err != nil {
		return fmt.Errorf("oscmixer: %s: %w", addr, err)
	}
	return nil
}

func arg(cmd protocol.Command, v float64) any {
	switch cmd.Type {
	case "i":
		return int32(math.Round(v))
	case "d":
		return v
	case "s":
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return float32(v)
	}
}

func (m *Mixer) sendCommand(kind protocol.MessageKind, ch, aux int, value float64) error {
	cmd, ok := m.desc.To(kind)
	if !ok {
		return nil
	}
	return m.send(cmd.Address(ch+1, aux+1, m.desc.ChannelDigits), arg(cmd, value))
}

func (m *Mixer) sendLevel(kind protocol.MessageKind, ch, aux int, level float64, r protocol.Range) error {
	cmd, ok := m.desc.To(kind)
	if !ok {
		return nil
	}
	return m.send(cmd.Address(ch+1, aux+1, m.desc.ChannelDigits), arg(cmd, cmd.Scale(level, r)))
}

func (m *Mixer) sendSwitch(on bool, onKind, offKind protocol.MessageKind, ch int) error {
	kind := offKind
	if on {
		kind = onKind
	}
	cmd, ok := m.desc.To(kind)
	if !ok {
		return nil
	}
	return m.sendCommand(kind, ch, 0, cmd.Value)
}

func (m *Mixer) SendOutputLevel(ch int, level float64) error {
	return m.sendLevel(protocol.ChannelOutGain, ch, 0, level, m.desc.OutputGain)
}

func (m *Mixer) SendPflState(ch int, on bool) error {
	return m.sendSwitch(on, protocol.PflOn, protocol.PflOff, ch)
}

func (m *Mixer) SendMuteState(ch int, on bool) error {
	return m.sendSwitch(on, protocol.ChannelMuteOn, protocol.ChannelMuteOff, ch)
}

func (m *Mixer) SendAMixState(ch int, on bool) error {
	return m.sendSwitch(on, protocol.ChannelAMixOn, protocol.ChannelAMixOff, ch)
}

func (m *Mixer) SendAuxLevel(ch, aux int, level float64) error {
	return m.sendLevel(protocol.AuxLevel, ch, aux, level, m.desc.Fader)
}

func (m *Mixer) SendNextAux(ch int, level float64) error {
	return m.sendLevel(protocol.NextSend, ch, 0, level, m.desc.Fader)
}

func (m *Mixer) SendInputGain(ch int, level float64) error {
	return m.sendLevel(protocol.ChannelInputGain, ch, 0, level, m.desc.Fader)
}

func (m *Mixer) SendInputSelector(ch int, selected int) error {
	return m.sendCommand(protocol.ChannelInputSelector, ch, 0, float64(selected))
}

func (m *Mixer) SendFx(ch int, param string, level float64) error {
	return m.sendLevel(protocol.FxParam, ch, 0, level, m.desc.Fader)
}

func (m *Mixer) SendChannelName(ch int, name string) error {
	cmd, ok := m.desc.To(protocol.ChannelName)
	if !ok {
		return nil
	}
	return m.send(cmd.Address(ch+1, 0, m.desc.ChannelDigits), name)
}

// Ping sends the keep-alive commands. Mixers such as the XR series stop
// pushing changes unless they are renewed every ten seconds.
func (m *Mixer) Ping() error {
	var errs []error
	for _, cmd := range m.desc.PingCommands {
		if cmd.Disabled() {
			continue
		}
		if err := m.send(cmd.Message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Mixer) readLoop() {
	buf := make([]byte, 65536)
	var pending []byte
	for {
		n, err := m.conn.Read(buf)
		if err != nil {
			if !m.closed.Load() {
				m.log.Warn("read", "error", err)
			}
			if m.online.Swap(false) && m.in != nil {
				m.in.MixerOnline(false)
			}
			return
		}
		if !m.stream {
			m.handle(buf[:n])
			continue
		}
		pending = append(pending, buf[:n]...)
		for {
			frame, rest, ok := osc.NextFrame(pending)
			if !ok {
				pending = rest
				break
			}
			pending = rest
			m.handle(frame)
		}
	}
}

func (m *Mixer) handle(packet []byte) {
	msg, err := osc.Parse(packet)
	if err != nil {
		m.log.Debug("parse", "error", err)
		return
	}
	if m.in == nil {
		return
	}
	if !m.online.Swap(true) {
		m.in.MixerOnline(true)
	}

	if ch, cmd, ok := m.match(msg.Address, protocol.ChannelFaderLevel, protocol.ChannelOutGain); ok {
		if v, ok := msg.Float(0); ok {
			m.in.MixerFaderLevel(ch, cmd.Unscale(v, m.desc.Fader))
		}
		return
	}
	if ch, _, ok := m.match(msg.Address, protocol.ChannelName); ok {
		if s, ok := msg.String(0); ok {
			m.in.MixerChannelName(ch, s)
		}
		return
	}
	if ch, _, ok := m.match(msg.Address, protocol.ChannelVu); ok {
		if v, ok := msg.Float(0); ok {
			m.in.MixerVu(ch, v)
		}
	}
}

// match returns the 0-based channel of the first inbound command of kinds
// whose address pattern fits addr.
func (m *Mixer) match(addr string, kinds ...protocol.MessageKind) (int, protocol.Command, bool) {
	for _, kind := range kinds {
		cmd, ok := m.desc.From(kind)
		if !ok {
			continue
		}
		if ch, ok := osc.Match(cmd.Message, addr); ok && ch > 0 {
			return ch - 1, cmd, true
		}
	}
	return 0, protocol.Command{}, false
}
