package reactive

import (
	"context"
	"maps"
	"sync"

	"github.com/rs/zerolog"

	"github.com/khanglvm/devtools-hub/internal/preference"
	"github.com/khanglvm/devtools-hub/internal/query"
)

// PreferenceStore is the part of the preference service the binding uses.
type PreferenceStore interface {
	Get(ctx context.Context, tool string) (map[string]any, error)
	Set(ctx context.Context, tool string, data map[string]any) error
}

// PreferenceState is a snapshot of a Preferences binding. Value must not be
// modified by the receiver.
type PreferenceState struct {
	Tool    string
	Value   map[string]any
	Loading bool
	Err     error
}

// Preferences keeps the preferences of the tool at the router's current path
// loaded, with defaults filled in for keys that were never stored.
type Preferences struct {
	router   *query.Router
	store    PreferenceStore
	defaults map[string]any
	log      zerolog.Logger
	state    *tracker[PreferenceState]

	closeOnce  sync.Once
	cancelPath func()
}

// NewPreferences binds store to router and starts loading the current tool.
// ctx bounds every background load; Close releases the binding.
func NewPreferences(ctx context.Context, router *query.Router, store PreferenceStore, defaults map[string]any, opts ...Option) *Preferences {
	o := buildOptions("reactive.preferences", opts)
	p := &Preferences{
		router:   router,
		store:    store,
		defaults: maps.Clone(defaults),
		log:      o.log,
	}
	p.state = newTracker(ctx, PreferenceState{})

	p.cancelPath = router.SubscribePath(func(string) {
		// A redirect may already have moved the router past the delivered path.
		tool := ToolFromPath(router.Path())
		if tool != p.state.get().Tool {
			p.load(tool)
		}
	})
	p.load(ToolFromPath(router.Path()))
	return p
}

// State returns the current state.
func (p *Preferences) State() PreferenceState {
	return p.state.get()
}

// Subscribe registers fn to be called with every new state.
func (p *Preferences) Subscribe(fn func(PreferenceState)) (cancel func()) {
	return p.state.subscribe(fn)
}

// Reload reloads the current tool's preferences from the store.
func (p *Preferences) Reload() {
	p.load(p.State().Tool)
}

func (p *Preferences) load(tool string) {
	gen := p.state.begin(func(s *PreferenceState) {
		*s = PreferenceState{Tool: tool, Value: maps.Clone(p.defaults), Loading: true}
	})

	p.state.goLoad(func(ctx context.Context) {
		stored, err := p.store.Get(ctx, tool)
		applied := p.state.finish(gen, func(s *PreferenceState) {
			s.Loading = false
			if err != nil {
				s.Err = err
				return
			}
			s.Value = preference.MergeShallow(p.defaults, stored)
		})
		if !applied {
			p.log.Debug().Str("tool", tool).Msg("discarded stale preference load")
		}
	})
}

// Save merges partial into the in-memory preferences and persists the result.
// The in-memory value changes before the write; a failed write is reported
// in State().Err and returned.
//
// A load still in flight is discarded. The store is written with the value
// on screen, which is the defaults while loading, so stored keys that are
// neither defaults nor in partial are overwritten.
func (p *Preferences) Save(ctx context.Context, partial map[string]any) error {
	var (
		tool   string
		merged map[string]any
	)
	p.state.begin(func(s *PreferenceState) {
		tool = s.Tool
		merged = preference.MergeShallow(s.Value, partial)
		s.Value = merged
		s.Loading = false
		s.Err = nil
	})

	err := p.store.Set(ctx, tool, merged)
	if err != nil {
		p.log.Warn().Err(err).Str("tool", tool).Msg("failed to save preferences")
		p.state.update(func(s *PreferenceState) {
			if s.Tool == tool {
				s.Err = err
			}
		})
	}
	return err
}

// Close stops following the router and waits for background loads.
func (p *Preferences) Close() {
	p.closeOnce.Do(func() {
		p.cancelPath()
		p.state.close()
	})
}
