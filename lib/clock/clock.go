package clock

import (
	"sort"
	"sync"
	"time"

	"faderbridge/lib/loop"
)

type Timer interface {
	// Stop prevents the timer from firing. It reports false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Scheduler arms one-shot timers. Now is the clock the delays are measured
// on, so periodic users can aim at absolute deadlines instead of chaining
// delays.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Looped schedules on the wall clock and runs callbacks on an event loop. A
// callback may already be queued on the loop when Stop is called, so users
// must guard callbacks with their own generation check.
type Looped struct {
	Loop loop.Poster
}

func (Looped) Now() time.Time {
	return time.Now()
}

func (l Looped) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { l.Loop.Post(f) })
}

// Manual is a deterministic Scheduler driven by Advance. Callbacks run on the
// goroutine calling Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	m    *Manual
	at   time.Duration
	seq  uint64
	fn   func()
	done bool
}

// manualEpoch is what Manual.Now reports before any Advance.
var manualEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return manualEpoch.Add(m.now)
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, fn: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.m.remove(t)
	return true
}

func (m *Manual) remove(t *manualTimer) {
	for i, o := range m.timers {
		if o == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// Elapsed is the time advanced so far.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Advance moves time forward by d, firing due timers in order. Timers armed
// by a callback fire within the same call if they fall due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	for {
		sort.Slice(m.timers, func(i, j int) bool {
			if m.timers[i].at != m.timers[j].at {
				return m.timers[i].at < m.timers[j].at
			}
			return m.timers[i].seq < m.timers[j].seq
		})
		if len(m.timers) == 0 || m.timers[0].at > target {
			break
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		t.done = true
		m.now = t.at
		m.mu.Unlock()
		t.fn()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}
