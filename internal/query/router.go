/*
Package query binds typed parameters to a live URL query string.

A Router owns the authoritative location (path and query) together with a
navigation history stack. Bindings never mutate the query directly: they hand
the router a pure function from the previous query to the next one, and the
router evaluates it against the freshest committed state inside its critical
section. Subscribers are keyed per query parameter, so a change to one key
never notifies bindings of unrelated keys.

Notifications are delivered in commit order by one goroutine at a time. A
commit made while another goroutine is delivering, or from inside a
subscriber, is queued and delivered after the batches ahead of it.
*/
package query

import (
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/khanglvm/devtools-hub/internal/metrics"
	"github.com/khanglvm/devtools-hub/internal/param"
)

// Location is one entry of the navigation history.
type Location struct {
	Path  string
	Query url.Values
}

// String renders the location as a relative URL.
func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// Router holds the current location and the navigation stack.
type Router struct {
	mu      sync.Mutex
	entries []Location
	index   int

	nextID   int
	keySubs  map[string]map[int]func(param.Raw)
	pathSubs map[int]func(string)

	pending     []func()
	dispatching bool
}

// NewRouter creates a router positioned at path with the given query.
func NewRouter(path string, q url.Values) *Router {
	return &Router{
		entries:  []Location{{Path: normalizePath(path), Query: cloneValues(q)}},
		keySubs:  make(map[string]map[int]func(param.Raw)),
		pathSubs: make(map[int]func(string)),
	}
}

// ParseRouter creates a router from a relative or absolute URL string.
func ParseRouter(rawURL string) (*Router, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return NewRouter(u.Path, u.Query()), nil
}

// Location returns a copy of the current location.
func (r *Router) Location() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.entries[r.index]
	return Location{Path: cur.Path, Query: cloneValues(cur.Query)}
}

// Path returns the current path.
func (r *Router) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[r.index].Path
}

// Query returns a copy of the current query mapping.
func (r *Router) Query() url.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneValues(r.entries[r.index].Query)
}

// Get returns the raw value of a single key, or nil when absent.
func (r *Router) Get(key string) param.Raw {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rawOf(r.entries[r.index].Query, key)
}

// Len returns the number of entries in the navigation stack.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Navigate commits a new query computed from the freshest committed one.
//
// fn receives a private copy of the current query and returns the next
// query; it runs while the router is locked, so concurrent navigations are
// applied one after another and never observe each other's stale snapshots.
// fn must not call back into the router. When called from a subscriber or
// while another goroutine is delivering, subscribers may be notified after
// Navigate returns.
func (r *Router) Navigate(fn func(prev url.Values) url.Values, push bool) {
	r.mu.Lock()
	cur := r.entries[r.index]
	next := cloneValues(fn(cloneValues(cur.Query)))
	r.commitLocked(Location{Path: cur.Path, Query: next}, push)
	r.pending = append(r.pending, r.diffLocked(cur, Location{Path: cur.Path, Query: next}))
	r.mu.Unlock()

	r.dispatch()
}

// Go moves to a new path with the given query.
func (r *Router) Go(path string, q url.Values, push bool) {
	r.mu.Lock()
	cur := r.entries[r.index]
	next := Location{Path: normalizePath(path), Query: cloneValues(q)}
	r.commitLocked(next, push)
	r.pending = append(r.pending, r.diffLocked(cur, next))
	r.mu.Unlock()

	r.dispatch()
}

// Back moves one entry back in the navigation stack.
// It reports false when already at the oldest entry.
func (r *Router) Back() bool {
	return r.step(-1)
}

// Forward moves one entry forward in the navigation stack.
func (r *Router) Forward() bool {
	return r.step(1)
}

func (r *Router) step(delta int) bool {
	r.mu.Lock()
	target := r.index + delta
	if target < 0 || target >= len(r.entries) {
		r.mu.Unlock()
		return false
	}
	cur := r.entries[r.index]
	r.index = target
	r.pending = append(r.pending, r.diffLocked(cur, r.entries[target]))
	r.mu.Unlock()

	r.dispatch()
	return true
}

// dispatch delivers queued notification batches in commit order. If another
// call is already delivering, it returns at once and that call delivers the
// new batches too.
func (r *Router) dispatch() {
	r.mu.Lock()
	if r.dispatching {
		r.mu.Unlock()
		return
	}
	r.dispatching = true
	defer func() {
		r.dispatching = false
		r.mu.Unlock()
	}()

	for len(r.pending) > 0 {
		notify := r.pending[0]
		r.pending[0] = nil
		r.pending = r.pending[1:]
		r.deliver(notify)
	}
}

// deliver runs notify without the lock held. The lock is re-acquired even
// if a subscriber panics.
func (r *Router) deliver(notify func()) {
	r.mu.Unlock()
	defer r.mu.Lock()
	notify()
}

// SubscribeKey registers fn to be called with the new raw value whenever the
// value of key changes. The returned function cancels the subscription.
func (r *Router) SubscribeKey(key string, fn func(param.Raw)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	subs, ok := r.keySubs[key]
	if !ok {
		subs = make(map[int]func(param.Raw))
		r.keySubs[key] = subs
	}
	subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.keySubs[key], id)
		if len(r.keySubs[key]) == 0 {
			delete(r.keySubs, key)
		}
	}
}

// SubscribePath registers fn to be called with the new path whenever it changes.
func (r *Router) SubscribePath(fn func(string)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.pathSubs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.pathSubs, id)
	}
}

func (r *Router) commitLocked(next Location, push bool) {
	if push {
		r.entries = append(r.entries[:r.index+1], next)
		r.index++
		return
	}
	r.entries[r.index] = next
}

// diffLocked collects the subscribers affected by a transition from prev to
// next and returns a closure that invokes them outside the lock.
func (r *Router) diffLocked(prev, next Location) func() {
	type keyCall struct {
		fn  func(param.Raw)
		raw param.Raw
	}
	var keyCalls []keyCall
	for key, subs := range r.keySubs {
		before, after := rawOf(prev.Query, key), rawOf(next.Query, key)
		if slices.Equal(before, after) {
			continue
		}
		for _, fn := range subs {
			keyCalls = append(keyCalls, keyCall{fn: fn, raw: slices.Clone(after)})
		}
	}

	var pathCalls []func(string)
	if prev.Path != next.Path {
		for _, fn := range r.pathSubs {
			pathCalls = append(pathCalls, fn)
		}
	}

	path := next.Path
	return func() {
		for _, c := range keyCalls {
			c.fn(c.raw)
		}
		for _, fn := range pathCalls {
			fn(path)
		}
	}
}

func rawOf(q url.Values, key string) param.Raw {
	v, ok := q[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return param.Raw(slices.Clone(v))
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		if len(v) == 0 {
			continue
		}
		out[k] = slices.Clone(v)
	}
	return out
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// countNavigation records a committed navigation for the given mode.
func countNavigation(mode UpdateMode) {
	metrics.NavigationsTotal.WithLabelValues(mode.String()).Inc()
}
