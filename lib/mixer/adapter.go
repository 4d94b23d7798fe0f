package mixer

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"faderbridge/lib/protocol"
)

// Adapter sends channel state to one mixer. Channel indices are 0-based.
// Errors are reported to the caller for logging only; nothing retries them,
// the next tick or event re-sends current state anyway.
type Adapter interface {
	SendOutputLevel(ch int, level float64) error
	SendPflState(ch int, on bool) error
	SendMuteState(ch int, on bool) error
	SendAuxLevel(ch int, aux int, level float64) error
	SendChannelName(ch int, name string) error
	Ping() error
	Close() error
}

type NextAuxSender interface {
	SendNextAux(ch int, level float64) error
}

type InputGainSender interface {
	SendInputGain(ch int, level float64) error
}

type InputSelectorSender interface {
	SendInputSelector(ch int, selected int) error
}

type FxSender interface {
	SendFx(ch int, param string, level float64) error
}

// AMixSender switches the desk's automixer for a channel.
type AMixSender interface {
	SendAMixState(ch int, on bool) error
}

// Inbound receives mixer-originated changes. Connection implements it.
type Inbound interface {
	MixerFaderLevel(ch int, level float64)
	MixerChannelName(ch int, name string)
	MixerVu(ch int, level float64)
	MixerOnline(online bool)
}

type Endpoint struct {
	Host      string
	Port      int
	Transport string
	MidiIn    string
	MidiOut   string
	Channels  int
}

type Factory func(desc *protocol.MixerProtocol, ep Endpoint, in Inbound, log *slog.Logger) (Adapter, error)

var (
	registryMu sync.Mutex
	factories  = map[string]Factory{}
)

// Register makes an adapter available for a protocol name such as "OSC".
// Adapter packages call it from init.
func Register(protocolName string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[protocolName] = f
}

func Open(desc *protocol.MixerProtocol, ep Endpoint, in Inbound, log *slog.Logger) (Adapter, error) {
	registryMu.Lock()
	f, ok := factories[desc.Protocol]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("mixer: no adapter registered for protocol %q", desc.Protocol)
	}
	if log == nil {
		log = slog.Default()
	}
	a, err := f(desc, ep, in, log.With("adapter", desc.Protocol))
	if err != nil {
		return nil, fmt.Errorf("mixer: open %s: %w", desc.Name, err)
	}
	return a, nil
}

func Protocols() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type RemoteObserver interface {
	UpdateRemoteFaderState(fader int, level float64)
	UpdateRemoteAuxPanels()
}

// Remotes fans out to every connected observer. Observers are best effort.
// It is only touched from the loop.
type Remotes struct {
	list []RemoteObserver
}

func (r *Remotes) Add(o RemoteObserver) {
	r.list = append(r.list, o)
}

func (r *Remotes) UpdateRemoteFaderState(fader int, level float64) {
	for _, o := range r.list {
		o.UpdateRemoteFaderState(fader, level)
	}
}

func (r *Remotes) UpdateRemoteAuxPanels() {
	for _, o := range r.list {
		o.UpdateRemoteAuxPanels()
	}
}
