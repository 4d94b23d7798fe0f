package loop

import (
	"sync"
	"testing"
)

func TestQueueRunsInOrder(t *testing.T) {
	q := New(8)
	q.Start()
	t.Cleanup(q.Close)

	var got []int
	var wg sync.WaitGroup
	wg.Add(100)
	for i := range 100 {
		q.Post(func() {
			got = append(got, i)
			wg.Done()
		})
	}
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("got %d at position %d", v, i)
		}
	}
}

func TestQueueDo(t *testing.T) {
	q := New(0)
	q.Start()
	t.Cleanup(q.Close)

	ran := false
	q.Do(func() { ran = true })
	if !ran {
		t.Error("expected Do to wait for fn")
	}
}

func TestPostAfterCloseIsDropped(t *testing.T) {
	q := New(1)
	q.Start()
	q.Close()

	q.Post(func() { t.Error("ran after close") })
	q.Do(func() { t.Error("ran after close") })
}

func TestInline(t *testing.T) {
	ran := false
	Inline{}.Post(func() { ran = true })
	if !ran {
		t.Error("expected inline post to run immediately")
	}
}

func TestCloseRunsQueuedFuncs(t *testing.T) {
	q := New(8)
	q.Start()

	release := make(chan struct{})
	q.Post(func() { <-release })
	var ran []int
	for i := range 3 {
		q.Post(func() { ran = append(ran, i) })
	}

	closed := make(chan struct{})
	go func() {
		q.Close()
		close(closed)
	}()
	close(release)
	<-closed

	if len(ran) != 3 {
		t.Errorf("got %v, want all three queued funcs to run", ran)
	}
}
