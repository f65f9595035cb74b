package reactive

import (
	"context"
	"sync"
)

// tracker holds the state of a binding and the generation of its latest load.
type tracker[S any] struct {
	mu     sync.Mutex
	state  S
	gen    uint64
	subs   map[int]func(S)
	nextID int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newTracker[S any](ctx context.Context, initial S) *tracker[S] {
	ctx, cancel := context.WithCancel(ctx)
	return &tracker[S]{
		state:  initial,
		subs:   make(map[int]func(S)),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (t *tracker[S]) get() S {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *tracker[S]) subscribe(fn func(S)) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.subs[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// begin starts a new generation, superseding any load in flight.
func (t *tracker[S]) begin(fn func(*S)) uint64 {
	t.mu.Lock()
	t.gen++
	gen := t.gen
	fn(&t.state)
	notify := t.snapshotLocked()
	t.mu.Unlock()

	notify()
	return gen
}

// finish applies fn only if gen is still the latest generation.
func (t *tracker[S]) finish(gen uint64, fn func(*S)) bool {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return false
	}
	fn(&t.state)
	notify := t.snapshotLocked()
	t.mu.Unlock()

	notify()
	return true
}

// update applies fn regardless of generation.
func (t *tracker[S]) update(fn func(*S)) {
	t.mu.Lock()
	fn(&t.state)
	notify := t.snapshotLocked()
	t.mu.Unlock()

	notify()
}

// snapshotLocked returns a closure delivering the current state to every
// subscriber outside the lock.
func (t *tracker[S]) snapshotLocked() func() {
	state := t.state
	fns := make([]func(S), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(state)
		}
	}
}

// goLoad runs fn in the background with the tracker context.
func (t *tracker[S]) goLoad(fn func(ctx context.Context)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn(t.ctx)
	}()
}

func (t *tracker[S]) close() {
	t.cancel()
	t.wg.Wait()
}
