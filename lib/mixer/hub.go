package mixer

import (
	"log/slog"

	"faderbridge/lib/loop"
	"faderbridge/lib/protocol"
	"faderbridge/lib/state"
)

// Hub drives every mixer connection from one set of faders. Fader actions
// are dispatched on the store once and then sent to each mixer; channel
// actions go to the addressed mixer only. Panels and the web API talk to
// the Hub. All connections must share its store and loop.
type Hub struct {
	store   *state.Store
	proto   *protocol.MixerProtocol
	loop    loop.Poster
	log     *slog.Logger
	conns   []*Connection
	remotes *Remotes
}

// NewHub clamps fader levels on proto, which is normally the first mixer's
// protocol.
func NewHub(store *state.Store, proto *protocol.MixerProtocol, lp loop.Poster, log *slog.Logger, conns ...*Connection) *Hub {
	if log == nil {
		log = slog.Default()
	}
	if lp == nil {
		lp = loop.Inline{}
	}
	h := &Hub{
		store:   store,
		proto:   proto,
		loop:    lp,
		log:     log.With("component", "hub"),
		conns:   conns,
		remotes: &Remotes{},
	}
	lp.Post(func() {
		for _, c := range conns {
			c.remotes = h.remotes
			c.peers = conns
		}
	})
	return h
}

func (h *Hub) Store() *state.Store {
	return h.store
}

func (h *Hub) Protocol() *protocol.MixerProtocol {
	return h.proto
}

func (h *Hub) Connections() []*Connection {
	return h.conns
}

func (h *Hub) AddRemote(o RemoteObserver) {
	h.loop.Post(func() { h.remotes.Add(o) })
}

func (h *Hub) TogglePgm(fader int) {
	h.faderOp(fader, state.TogglePgm{Fader: fader}, (*Connection).retarget)
}

func (h *Hub) ToggleVo(fader int) {
	h.faderOp(fader, state.ToggleVo{Fader: fader}, (*Connection).retarget)
}

func (h *Hub) SetFaderLevel(fader int, level float64) {
	h.faderOp(fader, state.SetFaderLevel{Fader: fader, Level: h.proto.ClampFader(level)}, (*Connection).retarget)
}

func (h *Hub) SetInputGain(fader int, level float64) {
	h.faderOp(fader, state.SetInputGain{Fader: fader, Level: h.proto.ClampFader(level)}, (*Connection).sendInputGain)
}

func (h *Hub) SetInputSelector(fader, selected int) {
	h.faderOp(fader, state.SetInputSelector{Fader: fader, Selected: selected}, (*Connection).sendInputSelector)
}

func (h *Hub) SetFx(fader int, param state.FxParam, level float64) {
	h.faderOp(fader, state.SetFx{Fader: fader, Param: param, Level: h.proto.ClampFader(level)}, sendFx(param))
}

func (h *Hub) TogglePst(fader int) {
	h.faderOp(fader, state.TogglePst{Fader: fader}, (*Connection).sendPreset)
}

func (h *Hub) TogglePstVo(fader int) {
	h.faderOp(fader, state.TogglePstVo{Fader: fader}, (*Connection).sendPreset)
}

func (h *Hub) TogglePfl(fader int) {
	h.faderOp(fader, state.TogglePfl{Fader: fader}, (*Connection).sendPfl)
}

func (h *Hub) ToggleMute(fader int) {
	h.faderOp(fader, state.ToggleMute{Fader: fader}, (*Connection).sendMute)
}

func (h *Hub) SetFaderLabel(fader int, label string) {
	h.faderOp(fader, state.SetFaderLabel{Fader: fader, Label: label}, (*Connection).sendFaderLabel)
}

func (h *Hub) ToggleSlowFade(fader int) {
	h.faderOp(fader, state.ToggleSlowFade{Fader: fader}, nil)
}

func (h *Hub) ToggleAMix(fader int) {
	h.faderOp(fader, state.ToggleAMix{Fader: fader}, (*Connection).sendAMix)
}

func (h *Hub) ToggleIgnoreAutomation(fader int) {
	h.faderOp(fader, state.ToggleIgnoreAutomation{Fader: fader}, nil)
}

func (h *Hub) SetFaderMonitor(fader, aux int) {
	h.faderOp(fader, state.SetFaderMonitor{Fader: fader, Aux: aux}, nil)
}

func (h *Hub) ToggleAllManual() {
	h.loop.Post(func() { h.store.Dispatch(state.ToggleAllManual{}) })
}

func (h *Hub) NextMix() {
	h.loop.Post(func() { h.mixOp(state.NextMix{}) })
}

func (h *Hub) ClearPst() {
	h.loop.Post(func() { h.mixOp(state.ClearPst{}) })
}

func (h *Hub) UpdateOutLevels() {
	h.loop.Post(func() {
		for _, c := range h.conns {
			c.updateOutLevels()
		}
		h.remotes.UpdateRemoteAuxPanels()
	})
}

// SetAssignedFader and the other channel actions return false when mixer
// is not one of the hub's connections.
func (h *Hub) SetAssignedFader(mixer, ch, fader int) bool {
	c, ok := h.conn(mixer)
	if ok {
		c.SetAssignedFader(ch, fader)
	}
	return ok
}

func (h *Hub) SetAuxLevel(mixer, ch, aux int, level float64) bool {
	c, ok := h.conn(mixer)
	if ok {
		c.SetAuxLevel(ch, aux, level)
	}
	return ok
}

func (h *Hub) SetChannelLabel(mixer, ch int, label string) bool {
	c, ok := h.conn(mixer)
	if ok {
		c.SetChannelLabel(ch, label)
	}
	return ok
}

func (h *Hub) ToggleSnap(mixer, ch, snap int) bool {
	c, ok := h.conn(mixer)
	if ok {
		c.ToggleSnap(ch, snap)
	}
	return ok
}

func (h *Hub) Close() {
	for _, c := range h.conns {
		c.Close()
	}
}

func (h *Hub) conn(mixer int) (*Connection, bool) {
	for _, c := range h.conns {
		if c.mixer == mixer {
			return c, true
		}
	}
	h.log.Debug("unknown mixer", "mixer", mixer)
	return nil, false
}

func (h *Hub) faderOp(fader int, a state.Action, send func(*Connection, int)) {
	h.loop.Post(func() {
		applyFader(h.store, h.log, h.conns, h.remotes, fader, a, send)
	})
}

func (h *Hub) mixOp(a state.Action) {
	h.store.Dispatch(a)
	for _, c := range h.conns {
		c.updateOutLevels()
	}
	h.remotes.UpdateRemoteAuxPanels()
}
