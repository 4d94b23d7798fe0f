package clock

import (
	"testing"
	"time"
)

func TestManualFiresInOrder(t *testing.T) {
	m := NewManual()
	var got []string
	m.AfterFunc(20*time.Millisecond, func() { got = append(got, "b") })
	m.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	m.AfterFunc(20*time.Millisecond, func() { got = append(got, "c") })

	m.Advance(15 * time.Millisecond)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("got %v, want [a]", got)
	}
	m.Advance(5 * time.Millisecond)
	if len(got) != 3 || got[1] != "b" || got[2] != "c" {
		t.Fatalf("got %v, want [a b c]", got)
	}
	if m.Elapsed() != 20*time.Millisecond {
		t.Errorf("got %v, want 20ms", m.Elapsed())
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual()
	fired := false
	timer := m.AfterFunc(time.Millisecond, func() { fired = true })
	if !timer.Stop() {
		t.Error("expected Stop to report true")
	}
	if timer.Stop() {
		t.Error("expected second Stop to report false")
	}
	m.Advance(time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestManualRearmWithinAdvance(t *testing.T) {
	m := NewManual()
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 10 {
			m.AfterFunc(3*time.Millisecond, tick)
		}
	}
	m.AfterFunc(3*time.Millisecond, tick)

	m.Advance(15 * time.Millisecond)
	if count != 5 {
		t.Errorf("got %d ticks, want 5", count)
	}
	m.Advance(time.Second)
	if count != 10 {
		t.Errorf("got %d ticks, want 10", count)
	}
	if m.Pending() != 0 {
		t.Errorf("got %d pending, want 0", m.Pending())
	}
}

func TestFiredTimerStopReportsFalse(t *testing.T) {
	m := NewManual()
	timer := m.AfterFunc(time.Millisecond, func() {})
	m.Advance(time.Millisecond)
	if timer.Stop() {
		t.Error("expected Stop after firing to report false")
	}
}

func TestManualNowFollowsTimers(t *testing.T) {
	m := NewManual()
	start := m.Now()
	var at []time.Duration
	m.AfterFunc(7*time.Millisecond, func() { at = append(at, m.Now().Sub(start)) })
	m.AfterFunc(2*time.Millisecond, func() { at = append(at, m.Now().Sub(start)) })
	m.Advance(10 * time.Millisecond)
	if len(at) != 2 || at[0] != 2*time.Millisecond || at[1] != 7*time.Millisecond {
		t.Fatalf("got %v, want [2ms 7ms]", at)
	}
	if got := m.Now().Sub(start); got != 10*time.Millisecond {
		t.Errorf("got %v, want 10ms", got)
	}
}
