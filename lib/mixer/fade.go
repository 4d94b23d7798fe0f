package mixer

import (
	"log/slog"
	"math"
	"time"

	"faderbridge/lib/clock"
	"faderbridge/lib/protocol"
	"faderbridge/lib/state"
)

const (
	TickInterval       = 3 * time.Millisecond
	DispatchBatchTicks = 5
)

type Phase int

const (
	Idle Phase = iota
	Fading
	Settling
)

func (p Phase) String() string {
	switch p {
	case Fading:
		return "fading"
	case Settling:
		return "settling"
	default:
		return "idle"
	}
}

type Settings struct {
	FadeTime        time.Duration
	VoFadeTime      time.Duration
	SlowFadeTime    time.Duration
	VoLevel         float64
	AutoResetLevel  float64
	ProtocolLatency time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		FadeTime:        120 * time.Millisecond,
		VoFadeTime:      280 * time.Millisecond,
		SlowFadeTime:    time.Second,
		VoLevel:         30,
		AutoResetLevel:  5,
		ProtocolLatency: 220 * time.Millisecond,
	}
}

// fadeTime picks the duration for a fade driven by f. Slow fade wins over
// voice-over.
func (s Settings) fadeTime(f state.Fader) time.Duration {
	switch {
	case f.SlowFadeOn:
		return s.SlowFadeTime
	case f.VoOn:
		return s.VoFadeTime
	default:
		return s.FadeTime
	}
}

type trajectory struct {
	gen           uint64
	phase         Phase
	start         float64
	target        float64
	step          float64
	level         float64
	up            bool
	began         time.Time
	ticks         int
	done          int
	sinceDispatch int
	tick          clock.Timer
	settle        clock.Timer
}

func (t *trajectory) stop() {
	if t.tick != nil {
		t.tick.Stop()
		t.tick = nil
	}
	if t.settle != nil {
		t.settle.Stop()
		t.settle = nil
	}
}

// Engine owns Channel.OutputLevel and Channel.FadeActive for one mixer.
// It is not safe for concurrent use; every call and every timer callback
// must run on the same loop.
type Engine struct {
	mixer    int
	store    *state.Store
	proto    *protocol.MixerProtocol
	adapter  Adapter
	sched    clock.Scheduler
	settings Settings
	log      *slog.Logger

	gen     uint64
	fades   map[int]*trajectory
	failing map[int]bool
}

func NewEngine(mixer int, store *state.Store, proto *protocol.MixerProtocol, sched clock.Scheduler, settings Settings, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		mixer:    mixer,
		store:    store,
		proto:    proto,
		sched:    sched,
		settings: settings,
		log:      log,
		fades:    map[int]*trajectory{},
		failing:  map[int]bool{},
	}
}

// SetAdapter attaches the mixer output. A nil adapter keeps fading the
// store without sending anything.
func (e *Engine) SetAdapter(a Adapter) {
	e.adapter = a
}

func (e *Engine) SetSettings(s Settings) {
	e.settings = s
}

func (e *Engine) Phase(ch int) Phase {
	if tr, ok := e.fades[ch]; ok {
		return tr.phase
	}
	return Idle
}

// StartFade moves the channel toward the level its fader asks for: the
// fader level (attenuated for voice-over) when on air, the output minimum
// otherwise. Any trajectory already running for ch is superseded.
func (e *Engine) StartFade(ch int, fadeTime time.Duration) {
	s := e.store.State()
	c, ok := s.Channel(e.mixer, ch)
	if !ok {
		return
	}

	if old, ok := e.fades[ch]; ok {
		old.stop()
	}
	e.gen++
	tr := &trajectory{gen: e.gen, phase: Fading}
	e.fades[ch] = tr
	if !c.FadeActive {
		e.store.Dispatch(state.FadeActive{Mixer: e.mixer, Channel: ch, Active: true})
	}

	target := e.proto.OutputGain.Min
	if f, ok := s.Fader(c.AssignedFader); ok && f.OnAir() {
		level := f.Level
		if level < e.settings.AutoResetLevel/100 && c.OutputLevel == e.proto.OutputGain.Min {
			level = e.proto.Fader.Zero
			e.store.Dispatch(state.SetFaderLevel{Fader: c.AssignedFader, Level: level})
		}
		if f.VoOn {
			level *= 1 - e.settings.VoLevel/100
		}
		target = level
	}

	tr.start = e.proto.ClampOutput(c.OutputLevel)
	tr.target = e.proto.ClampOutput(target)
	tr.level = tr.start
	tr.up = tr.target >= tr.start

	if fadeTime <= 0 || tr.start == tr.target {
		tr.level = tr.target
		e.finish(ch, tr)
		return
	}

	tr.began = e.sched.Now()
	tr.ticks = int(math.Ceil(float64(fadeTime) / float64(TickInterval)))
	tr.step = (tr.target - tr.start) / float64(tr.ticks)
	e.log.Debug("fade", "channel", ch, "from", tr.start, "to", tr.target, "ticks", tr.ticks)
	e.arm(ch, tr)
}

// Cancel drops any trajectory for ch and clears its fade-active flag at once.
func (e *Engine) Cancel(ch int) {
	tr, ok := e.fades[ch]
	if !ok {
		return
	}
	tr.stop()
	delete(e.fades, ch)
	e.store.Dispatch(state.FadeActive{Mixer: e.mixer, Channel: ch, Active: false})
}

func (e *Engine) Close() {
	for ch, tr := range e.fades {
		tr.stop()
		delete(e.fades, ch)
	}
}

// arm schedules the next tick on the trajectory's own grid, so callback
// latency never accumulates over the fade.
func (e *Engine) arm(ch int, tr *trajectory) {
	gen := tr.gen
	deadline := tr.began.Add(time.Duration(tr.done+1) * TickInterval)
	d := max(deadline.Sub(e.sched.Now()), 0)
	tr.tick = e.sched.AfterFunc(d, func() { e.tick(ch, gen) })
}

func (e *Engine) current(ch int, gen uint64, phase Phase) *trajectory {
	tr, ok := e.fades[ch]
	if !ok || tr.gen != gen || tr.phase != phase {
		return nil
	}
	return tr
}

func (e *Engine) tick(ch int, gen uint64) {
	tr := e.current(ch, gen, Fading)
	if tr == nil {
		return
	}
	tr.tick = nil
	// A late callback catches up to every tick already due.
	due := int(e.sched.Now().Sub(tr.began) / TickInterval)
	tr.done = min(max(due, tr.done+1), tr.ticks)
	tr.level = tr.start + tr.step*float64(tr.done)

	if tr.done >= tr.ticks || (tr.up && tr.level >= tr.target) || (!tr.up && tr.level <= tr.target) {
		tr.level = tr.target
		e.finish(ch, tr)
		return
	}

	e.send(ch, tr.level)
	tr.sinceDispatch++
	if tr.sinceDispatch >= DispatchBatchTicks {
		tr.sinceDispatch = 0
		e.store.Dispatch(state.SetOutputLevel{Mixer: e.mixer, Channel: ch, Level: tr.level})
	}
	e.arm(ch, tr)
}

func (e *Engine) finish(ch int, tr *trajectory) {
	e.send(ch, tr.target)
	e.store.Dispatch(state.SetOutputLevel{Mixer: e.mixer, Channel: ch, Level: tr.target})
	tr.phase = Settling
	gen := tr.gen
	tr.settle = e.sched.AfterFunc(e.settings.ProtocolLatency, func() { e.settled(ch, gen) })
}

func (e *Engine) settled(ch int, gen uint64) {
	if e.current(ch, gen, Settling) == nil {
		return
	}
	delete(e.fades, ch)
	e.store.Dispatch(state.FadeActive{Mixer: e.mixer, Channel: ch, Active: false})
}

func (e *Engine) send(ch int, level float64) {
	if e.adapter == nil {
		return
	}
	if err := e.adapter.SendOutputLevel(ch, e.proto.ClampOutput(level)); err != nil {
		if !e.failing[ch] {
			e.failing[ch] = true
			e.log.Warn("send output level", "channel", ch, "error", err)
		} else {
			e.log.Debug("send output level", "channel", ch, "error", err)
		}
		return
	}
	if e.failing[ch] {
		delete(e.failing, ch)
		e.log.Info("output level recovered", "channel", ch)
	}
}
