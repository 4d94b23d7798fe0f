package mixer

import (
	"log/slog"
	"time"

	"faderbridge/lib/clock"
	"faderbridge/lib/loop"
	"faderbridge/lib/protocol"
	"faderbridge/lib/state"
)

type Config struct {
	Mixer    int
	Store    *state.Store
	Protocol *protocol.MixerProtocol
	Loop     loop.Poster
	Sched    clock.Scheduler
	Settings Settings
	Log      *slog.Logger
}

// Connection turns fader and mixer events into store updates, fades and
// adapter sends for one mixer. Exported methods may be called from any
// goroutine; they post onto the loop.
type Connection struct {
	mixer    int
	store    *state.Store
	proto    *protocol.MixerProtocol
	loop     loop.Poster
	sched    clock.Scheduler
	settings Settings
	log      *slog.Logger

	adapter  Adapter
	engine   *Engine
	resolver *Resolver
	remotes  *Remotes
	peers    []*Connection
	ping     clock.Timer
	closed   bool
}

func NewConnection(cfg Config) *Connection {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("mixer", cfg.Mixer, "protocol", cfg.Protocol.Name)
	lp := cfg.Loop
	if lp == nil {
		lp = loop.Inline{}
	}
	c := &Connection{
		mixer:    cfg.Mixer,
		store:    cfg.Store,
		proto:    cfg.Protocol,
		loop:     lp,
		sched:    cfg.Sched,
		settings: cfg.Settings,
		log:      log,
		engine:   NewEngine(cfg.Mixer, cfg.Store, cfg.Protocol, cfg.Sched, cfg.Settings, log),
		resolver: NewResolver(cfg.Store, cfg.Mixer),
		remotes:  &Remotes{},
	}
	c.peers = []*Connection{c}
	return c
}

func (c *Connection) Mixer() int {
	return c.mixer
}

func (c *Connection) Protocol() *protocol.MixerProtocol {
	return c.proto
}

// Attach sets the adapter and starts pinging when the protocol needs it.
func (c *Connection) Attach(a Adapter) {
	c.loop.Post(func() {
		c.adapter = a
		c.engine.SetAdapter(a)
		c.armPing()
		c.log.Info("adapter attached")
	})
}

func (c *Connection) AddRemote(o RemoteObserver) {
	c.loop.Post(func() {
		c.remotes.Add(o)
	})
}

func (c *Connection) SetSettings(s Settings) {
	c.loop.Post(func() {
		c.settings = s
		c.engine.SetSettings(s)
	})
}

func (c *Connection) Close() {
	c.loop.Post(func() {
		if c.closed {
			return
		}
		c.closed = true
		if c.ping != nil {
			c.ping.Stop()
		}
		c.engine.Close()
		if c.adapter != nil {
			if err := c.adapter.Close(); err != nil {
				c.log.Warn("close adapter", "error", err)
			}
		}
	})
}

func (c *Connection) TogglePgm(fader int) {
	c.faderOp(fader, state.TogglePgm{Fader: fader}, (*Connection).retarget)
}

func (c *Connection) ToggleVo(fader int) {
	c.faderOp(fader, state.ToggleVo{Fader: fader}, (*Connection).retarget)
}

func (c *Connection) SetFaderLevel(fader int, level float64) {
	c.faderOp(fader, state.SetFaderLevel{Fader: fader, Level: c.proto.ClampFader(level)}, (*Connection).retarget)
}

func (c *Connection) SetInputGain(fader int, level float64) {
	c.faderOp(fader, state.SetInputGain{Fader: fader, Level: c.proto.ClampFader(level)}, (*Connection).sendInputGain)
}

func (c *Connection) SetInputSelector(fader, selected int) {
	c.faderOp(fader, state.SetInputSelector{Fader: fader, Selected: selected}, (*Connection).sendInputSelector)
}

func (c *Connection) SetFx(fader int, param state.FxParam, level float64) {
	c.faderOp(fader, state.SetFx{Fader: fader, Param: param, Level: c.proto.ClampFader(level)}, sendFx(param))
}

func (c *Connection) TogglePst(fader int) {
	c.faderOp(fader, state.TogglePst{Fader: fader}, (*Connection).sendPreset)
}

func (c *Connection) TogglePstVo(fader int) {
	c.faderOp(fader, state.TogglePstVo{Fader: fader}, (*Connection).sendPreset)
}

func (c *Connection) TogglePfl(fader int) {
	c.faderOp(fader, state.TogglePfl{Fader: fader}, (*Connection).sendPfl)
}

func (c *Connection) ToggleMute(fader int) {
	c.faderOp(fader, state.ToggleMute{Fader: fader}, (*Connection).sendMute)
}

func (c *Connection) SetFaderLabel(fader int, label string) {
	c.faderOp(fader, state.SetFaderLabel{Fader: fader, Label: label}, (*Connection).sendFaderLabel)
}

func (c *Connection) ToggleSlowFade(fader int) {
	c.faderOp(fader, state.ToggleSlowFade{Fader: fader}, nil)
}

func (c *Connection) ToggleAMix(fader int) {
	c.faderOp(fader, state.ToggleAMix{Fader: fader}, (*Connection).sendAMix)
}

func (c *Connection) ToggleIgnoreAutomation(fader int) {
	c.faderOp(fader, state.ToggleIgnoreAutomation{Fader: fader}, nil)
}

func (c *Connection) SetFaderMonitor(fader, aux int) {
	c.faderOp(fader, state.SetFaderMonitor{Fader: fader, Aux: aux}, nil)
}

func (c *Connection) ToggleAllManual() {
	c.loop.Post(func() { c.store.Dispatch(state.ToggleAllManual{}) })
}

func (c *Connection) NextMix() {
	c.loop.Post(func() { c.mixOp(state.NextMix{}) })
}

func (c *Connection) ClearPst() {
	c.loop.Post(func() { c.mixOp(state.ClearPst{}) })
}

func (c *Connection) SetAssignedFader(ch, fader int) {
	c.loop.Post(func() { c.setAssignedFader(ch, fader) })
}

func (c *Connection) SetAuxLevel(ch, aux int, level float64) {
	c.loop.Post(func() { c.setAuxLevel(ch, aux, level) })
}

func (c *Connection) SetChannelLabel(ch int, label string) {
	c.loop.Post(func() { c.setChannelLabel(ch, label) })
}

func (c *Connection) ToggleSnap(ch, snap int) {
	c.loop.Post(func() {
		c.store.Dispatch(state.ToggleSnap{Mixer: c.mixer, Channel: ch, Snap: snap})
	})
}

// Sync publishes the current assignment map and re-targets every fader.
func (c *Connection) Sync() {
	c.loop.Post(c.sync)
}

func (c *Connection) UpdateOutLevels() {
	c.loop.Post(func() {
		c.updateOutLevels()
		c.remotes.UpdateRemoteAuxPanels()
	})
}

func (c *Connection) MixerFaderLevel(ch int, level float64) {
	c.loop.Post(func() { c.mixerFaderLevel(ch, level) })
}

func (c *Connection) MixerChannelName(ch int, name string) {
	c.loop.Post(func() {
		c.store.Dispatch(state.SetChannelLabel{Mixer: c.mixer, Channel: ch, Label: name})
	})
}

// MixerVu stores a meter reading for ch and its fader. Readings outside the
// meter range are clamped; NaN is dropped.
func (c *Connection) MixerVu(ch int, level float64) {
	level, ok := c.proto.ClampMeter(level)
	if !ok {
		return
	}
	c.loop.Post(func() {
		c.store.Dispatch(state.SetChannelVu{Mixer: c.mixer, Channel: ch, Level: level})
		if ref, ok := c.store.State().Channel(c.mixer, ch); ok && ref.AssignedFader != state.Unassigned {
			c.store.Dispatch(state.SetFaderVu{Fader: ref.AssignedFader, Level: level})
		}
	})
}

func (c *Connection) MixerOnline(online bool) {
	c.loop.Post(func() {
		c.store.Dispatch(state.SetMixerOnline{Mixer: c.mixer, Online: online})
		c.log.Info("mixer online", "online", online)
	})
}

func (c *Connection) faderOp(fader int, a state.Action, send func(*Connection, int)) {
	c.loop.Post(func() {
		applyFader(c.store, c.log, []*Connection{c}, c.remotes, fader, a, send)
	})
}

func (c *Connection) mixOp(a state.Action) {
	c.store.Dispatch(a)
	c.updateOutLevels()
	c.remotes.UpdateRemoteAuxPanels()
}

// applyFader dispatches a once, runs send on every connection and tells the
// remotes. Unknown faders are dropped before anything is dispatched.
func applyFader(store *state.Store, log *slog.Logger, conns []*Connection, remotes *Remotes, fader int, a state.Action, send func(*Connection, int)) {
	if _, ok := store.State().Fader(fader); !ok {
		log.Debug("unknown fader", "fader", fader)
		return
	}
	store.Dispatch(a)
	if send != nil {
		for _, c := range conns {
			send(c, fader)
		}
	}
	f, _ := store.State().Fader(fader)
	remotes.UpdateRemoteFaderState(fader, f.Level)
}

func (c *Connection) retarget(fader int) {
	c.updateOutLevel(fader, -1)
}

// updateOutLevel re-targets every channel on fader. A negative fadeTime
// picks the duration from the fader's flags.
func (c *Connection) updateOutLevel(fader int, fadeTime time.Duration) {
	f, ok := c.store.State().Fader(fader)
	if !ok {
		return
	}
	if fadeTime < 0 {
		fadeTime = c.settings.fadeTime(f)
	}
	for _, ch := range c.resolver.ChannelsFor(fader) {
		c.updateNextAux(fader, ch)
		c.engine.StartFade(ch, fadeTime)
	}
}

func (c *Connection) updateOutLevels() {
	for i := range c.store.State().Faders {
		c.updateOutLevel(i, -1)
	}
}

func (c *Connection) sync() {
	c.resolver.Invalidate()
	c.store.Dispatch(state.SetAssignedChannels{Refs: c.resolver.Refs()})
	c.updateOutLevels()
}

// updateNextAux feeds the preset bus: the fader level while PST or PST-VO
// is armed, silence otherwise.
func (c *Connection) updateNextAux(fader, ch int) {
	na, ok := c.adapter.(NextAuxSender)
	if !ok {
		return
	}
	f, _ := c.store.State().Fader(fader)
	level := 0.0
	if f.PstOn || f.PstVoOn {
		level = f.Level
	}
	if err := na.SendNextAux(ch, level); err != nil {
		c.log.Debug("send next aux", "channel", ch, "error", err)
	}
}

func (c *Connection) sendPreset(fader int) {
	for _, ch := range c.resolver.ChannelsFor(fader) {
		c.updateNextAux(fader, ch)
	}
}

func (c *Connection) sendPfl(fader int) {
	if c.adapter == nil {
		return
	}
	f, _ := c.store.State().Fader(fader)
	for _, ch := range c.resolver.ChannelsFor(fader) {
		if err := c.adapter.SendPflState(ch, f.PflOn); err != nil {
			c.log.Debug("send pfl", "channel", ch, "error", err)
		}
	}
}

func (c *Connection) sendMute(fader int) {
	if c.adapter == nil {
		return
	}
	f, _ := c.store.State().Fader(fader)
	for _, ch := range c.resolver.ChannelsFor(fader) {
		if err := c.adapter.SendMuteState(ch, f.MuteOn); err != nil {
			c.log.Debug("send mute", "channel", ch, "error", err)
		}
	}
}

func (c *Connection) sendFaderLabel(fader int) {
	if c.adapter == nil {
		return
	}
	f, _ := c.store.State().Fader(fader)
	for _, ch := range c.resolver.ChannelsFor(fader) {
		if err := c.adapter.SendChannelName(ch, f.Label); err != nil {
			c.log.Debug("send channel name", "channel", ch, "error", err)
		}
	}
}

func (c *Connection) sendInputGain(fader int) {
	ig, ok := c.adapter.(InputGainSender)
	if !ok {
		return
	}
	f, _ := c.store.State().Fader(fader)
	for _, ch := range c.resolver.ChannelsFor(fader) {
		if err := ig.SendInputGain(ch, f.InputGain); err != nil {
			c.log.Debug("send input gain", "channel", ch, "error", err)
		}
	}
}

func (c *Connection) sendInputSelector(fader int) {
	is, ok := c.adapter.(InputSelectorSender)
	if !ok {
		return
	}
	f, _ := c.store.State().Fader(fader)
	for _, ch := range c.resolver.ChannelsFor(fader) {
		if err := is.SendInputSelector(ch, f.InputSelector); err != nil {
			c.log.Debug("send input selector", "channel", ch, "error", err)
		}
	}
}

func (c *Connection) sendAMix(fader int) {
	am, ok := c.adapter.(AMixSender)
	if !ok {
		return
	}
	f, _ := c.store.State().Fader(fader)
	for _, ch := range c.resolver.ChannelsFor(fader) {
		if err := am.SendAMixState(ch, f.AMixOn); err != nil {
			c.log.Debug("send amix", "channel", ch, "error", err)
		}
	}
}

func sendFx(param state.FxParam) func(*Connection, int) {
	return func(c *Connection, fader int) {
		fx, ok := c.adapter.(FxSender)
		if !ok {
			return
		}
		f, _ := c.store.State().Fader(fader)
		level := f.Fx[param]
		for _, ch := range c.resolver.ChannelsFor(fader) {
			if err := fx.SendFx(ch, string(param), level); err != nil {
				c.log.Debug("send fx", "channel", ch, "param", param, "error", err)
			}
		}
	}
}

func (c *Connection) setAssignedFader(ch, fader int) {
	if _, ok := c.store.State().Channel(c.mixer, ch); !ok {
		c.log.Debug("unknown channel", "channel", ch)
		return
	}
	prev := c.resolver.SetAssignment(ch, fader)
	c.store.Dispatch(state.SetAssignedChannels{Refs: c.resolver.Refs()})

	cur, _ := c.store.State().Channel(c.mixer, ch)
	next := cur.AssignedFader
	c.log.Debug("assign", "channel", ch, "from", prev, "to", next)
	if next == state.Unassigned {
		c.engine.Cancel(ch)
	}
	if prev != state.Unassigned && prev != next {
		c.updateOutLevel(prev, -1)
	}
	if next != state.Unassigned {
		c.updateOutLevel(next, -1)
	}
	c.remotes.UpdateRemoteAuxPanels()
}

func (c *Connection) setAuxLevel(ch, aux int, level float64) {
	if _, ok := c.store.State().Channel(c.mixer, ch); !ok {
		c.log.Debug("unknown channel", "channel", ch)
		return
	}
	level = c.proto.ClampFader(level)
	c.store.Dispatch(state.SetAuxLevel{Mixer: c.mixer, Channel: ch, Aux: aux, Level: level})
	if c.adapter != nil {
		if err := c.adapter.SendAuxLevel(ch, aux, level); err != nil {
			c.log.Debug("send aux level", "channel", ch, "aux", aux, "error", err)
		}
	}
	c.remotes.UpdateRemoteAuxPanels()
}

func (c *Connection) setChannelLabel(ch int, label string) {
	if _, ok := c.store.State().Channel(c.mixer, ch); !ok {
		c.log.Debug("unknown channel", "channel", ch)
		return
	}
	c.store.Dispatch(state.SetChannelLabel{Mixer: c.mixer, Channel: ch, Label: label})
	if c.adapter != nil {
		if err := c.adapter.SendChannelName(ch, label); err != nil {
			c.log.Debug("send channel name", "channel", ch, "error", err)
		}
	}
	c.remotes.UpdateRemoteAuxPanels()
}

// mixerFaderLevel handles a fader moved on the desk itself. It lands on
// the assigned fader and puts it on air. Every other mixer follows at once;
// the desk that moved is only driven when it runs in master mode.
func (c *Connection) mixerFaderLevel(ch int, level float64) {
	cur, ok := c.store.State().Channel(c.mixer, ch)
	if !ok {
		return
	}
	fader := cur.AssignedFader
	f, ok := c.store.State().Fader(fader)
	if !ok {
		return
	}
	level = c.proto.ClampFader(level)
	c.store.Dispatch(state.SetFaderLevel{Fader: fader, Level: level})
	if !f.PgmOn {
		c.store.Dispatch(state.SetPgm{Fader: fader, On: true})
	}
	for _, p := range c.peers {
		if p == c && c.proto.Mode != protocol.ModeMaster {
			continue
		}
		p.updateOutLevel(fader, 0)
	}
	c.remotes.UpdateRemoteFaderState(fader, level)
}

func (c *Connection) armPing() {
	if c.ping != nil {
		c.ping.Stop()
		c.ping = nil
	}
	d := c.proto.PingInterval()
	if d <= 0 || c.adapter == nil {
		return
	}
	c.ping = c.sched.AfterFunc(d, func() {
		if c.closed || c.adapter == nil {
			return
		}
		if err := c.adapter.Ping(); err != nil {
			c.log.Debug("ping", "error", err)
		}
		c.armPing()
	})
}
