package loop

import (
	"context"
	"sync"
)

// Poster runs funcs on an event loop.
type Poster interface {
	Post(fn func())
}

// Queue serializes posted funcs onto a single goroutine. Everything that
// mutates mixer state runs through it, so the state itself needs no locks
// beyond what readers on other goroutines require.
type Queue struct {
	ch      chan func()
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
}

func New(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 1024
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{ch: make(chan func(), buffer), ctx: ctx, cancel: cancel}
}

// Start begins the worker goroutine. Safe to call multiple times.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-q.ctx.Done():
				// Funcs already queued still run; Post stops accepting
				// new ones once the context is done.
				for {
					select {
					case fn := <-q.ch:
						if fn != nil {
							fn()
						}
					default:
						return
					}
				}
			case fn := <-q.ch:
				if fn != nil {
					fn()
				}
			}
		}
	}()
}

// Post enqueues fn. Posts after Close are dropped.
func (q *Queue) Post(fn func()) {
	if q.ctx.Err() != nil {
		return
	}
	select {
	case q.ch <- fn:
	case <-q.ctx.Done():
	}
}

// Do posts fn and waits for it to run. It must not be called from the loop
// goroutine itself.
func (q *Queue) Do(fn func()) {
	done := make(chan struct{})
	q.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-q.ctx.Done():
	}
}

func (q *Queue) Close() {
	if q == nil {
		return
	}
	q.cancel()
	q.wg.Wait()
}

// Inline runs posted funcs immediately on the caller's goroutine.
type Inline struct{}

func (Inline) Post(fn func()) { fn() }
