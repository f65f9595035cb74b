package reactive

import (
	"context"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/khanglvm/devtools-hub/internal/history"
	"github.com/khanglvm/devtools-hub/internal/query"
	"github.com/khanglvm/devtools-hub/internal/storage"
)

// HistoryStore is the part of the history service the binding uses.
type HistoryStore interface {
	Add(ctx context.Context, tool string, params url.Values, e history.Entry) (storage.HistoryRecord, error)
	List(ctx context.Context, tool string, limit int) ([]history.Item, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context, tool string) error
}

// HistoryState is a snapshot of a History binding. Entries must not be
// modified by the receiver.
type HistoryState struct {
	Tool    string
	Entries []history.Item
	Loading bool
	Err     error
}

// History keeps the entries of the tool at the router's current path loaded,
// newest first.
type History struct {
	router *query.Router
	store  HistoryStore
	limit  int
	log    zerolog.Logger
	state  *tracker[HistoryState]

	closeOnce  sync.Once
	cancelPath func()
}

// NewHistory binds store to router and starts loading the current tool.
func NewHistory(ctx context.Context, router *query.Router, store HistoryStore, opts ...Option) *History {
	o := buildOptions("reactive.history", opts)
	h := &History{
		router: router,
		store:  store,
		limit:  o.limit,
		log:    o.log,
	}
	h.state = newTracker(ctx, HistoryState{})

	h.cancelPath = router.SubscribePath(func(string) {
		// A redirect may already have moved the router past the delivered path.
		tool := ToolFromPath(router.Path())
		if tool != h.state.get().Tool {
			h.load(tool, true)
		}
	})
	h.load(ToolFromPath(router.Path()), true)
	return h
}

// State returns the current state.
func (h *History) State() HistoryState {
	return h.state.get()
}

// Subscribe registers fn to be called with every new state.
func (h *History) Subscribe(fn func(HistoryState)) (cancel func()) {
	return h.state.subscribe(fn)
}

// Refresh reloads the current tool's entries. Entries already shown stay
// visible until the new list arrives.
func (h *History) Refresh() {
	h.load(h.State().Tool, false)
}

func (h *History) load(tool string, reset bool) {
	gen := h.state.begin(func(s *HistoryState) {
		if reset || s.Tool != tool {
			*s = HistoryState{Tool: tool}
		}
		s.Loading = true
	})

	h.state.goLoad(func(ctx context.Context) {
		entries, err := h.store.List(ctx, tool, h.limit)
		applied := h.state.finish(gen, func(s *HistoryState) {
			s.Loading = false
			s.Err = err
			if err == nil {
				s.Entries = entries
			}
		})
		if !applied {
			h.log.Debug().Str("tool", tool).Msg("discarded stale history load")
		}
	})
}

// Add records an invocation of the current tool, snapshotting the router's
// current query as its params, then refreshes the list.
func (h *History) Add(ctx context.Context, e history.Entry) (storage.HistoryRecord, error) {
	tool := ToolFromPath(h.router.Path())
	rec, err := h.store.Add(ctx, tool, h.router.Query(), e)
	if err != nil {
		h.fail(tool, err)
		return storage.HistoryRecord{}, err
	}
	h.Refresh()
	return rec, nil
}

// Remove deletes one entry and refreshes the list.
func (h *History) Remove(ctx context.Context, id int64) error {
	tool := h.State().Tool
	if err := h.store.Delete(ctx, id); err != nil {
		h.fail(tool, err)
		return err
	}
	h.Refresh()
	return nil
}

// Clear deletes every entry of the current tool and refreshes the list.
func (h *History) Clear(ctx context.Context) error {
	tool := h.State().Tool
	if err := h.store.Clear(ctx, tool); err != nil {
		h.fail(tool, err)
		return err
	}
	h.Refresh()
	return nil
}

func (h *History) fail(tool string, err error) {
	h.log.Warn().Err(err).Str("tool", tool).Msg("history operation failed")
	h.state.update(func(s *HistoryState) {
		if s.Tool == tool {
			s.Err = err
		}
	})
}

// Close stops following the router and waits for background loads.
func (h *History) Close() {
	h.closeOnce.Do(func() {
		h.cancelPath()
		h.state.close()
	})
}
