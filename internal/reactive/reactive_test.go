package reactive

import (
	"context"
	"errors"
	"maps"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/devtools-hub/internal/history"
	"github.com/khanglvm/devtools-hub/internal/query"
	"github.com/khanglvm/devtools-hub/internal/storage"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestToolFromPath(t *testing.T) {
	tests := map[string]string{
		"":              HomeTool,
		"/":             HomeTool,
		"/json":         "json",
		"/Base64/":      "base64",
		"/hash/sha256":  "hash",
		"uuid":          "uuid",
		"//cookie/edit": "cookie",
	}
	for path, want := range tests {
		assert.Equal(t, want, ToolFromPath(path), "path %q", path)
	}
}

// fakePrefs is an in-memory PreferenceStore. Loads of a gated tool block
// until the gate is closed.
type fakePrefs struct {
	mu    sync.Mutex
	data  map[string]map[string]any
	gates map[string]chan struct{}
	err   error
}

func newFakePrefs() *fakePrefs {
	return &fakePrefs{
		data:  make(map[string]map[string]any),
		gates: make(map[string]chan struct{}),
	}
}

func (f *fakePrefs) gate(tool string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[tool] = ch
	return ch
}

func (f *fakePrefs) Get(ctx context.Context, tool string) (map[string]any, error) {
	f.mu.Lock()
	gate := f.gates[tool]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return maps.Clone(f.data[tool]), nil
}

func (f *fakePrefs) Set(_ context.Context, tool string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.data[tool] = maps.Clone(data)
	return nil
}

func (f *fakePrefs) stored(tool string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.data[tool])
}

func waitLoaded[S any](t *testing.T, get func() S, loaded func(S) bool) S {
	t.Helper()
	require.Eventually(t, func() bool { return loaded(get()) }, waitFor, tick)
	return get()
}

func prefsLoaded(tool string) func(PreferenceState) bool {
	return func(s PreferenceState) bool { return s.Tool == tool && !s.Loading }
}

func TestPreferencesDefaultsUnderStored(t *testing.T) {
	store := newFakePrefs()
	store.data["hash"] = map[string]any{"algorithm": "sha512"}

	router := query.NewRouter("/hash", nil)
	p := NewPreferences(context.Background(), router, store, map[string]any{"algorithm": "sha256", "uppercase": false})
	defer p.Close()

	state := waitLoaded(t, p.State, prefsLoaded("hash"))
	require.NoError(t, state.Err)
	assert.Equal(t, map[string]any{"algorithm": "sha512", "uppercase": false}, state.Value)
}

func TestPreferencesSaveMerges(t *testing.T) {
	store := newFakePrefs()
	store.data["json"] = map[string]any{"a": 1}

	router := query.NewRouter("/json", nil)
	p := NewPreferences(context.Background(), router, store, nil)
	defer p.Close()

	waitLoaded(t, p.State, prefsLoaded("json"))

	require.NoError(t, p.Save(context.Background(), map[string]any{"b": 2}))
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, p.State().Value)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, store.stored("json"))
}

func TestPreferencesFollowRouter(t *testing.T) {
	store := newFakePrefs()
	store.data["json"] = map[string]any{"indent": 2}
	store.data["yaml"] = map[string]any{"indent": 4}

	router := query.NewRouter("/json", nil)
	p := NewPreferences(context.Background(), router, store, nil)
	defer p.Close()

	waitLoaded(t, p.State, prefsLoaded("json"))

	router.Go("/yaml", nil, true)
	state := waitLoaded(t, p.State, prefsLoaded("yaml"))
	assert.Equal(t, map[string]any{"indent": 4}, state.Value)
}

func TestPreferencesStaleLoadDiscarded(t *testing.T) {
	store := newFakePrefs()
	store.data["json"] = map[string]any{"from": "json"}
	store.data["yaml"] = map[string]any{"from": "yaml"}
	jsonGate := store.gate("json")

	router := query.NewRouter("/json", nil)
	p := NewPreferences(context.Background(), router, store, nil)

	var (
		mu   sync.Mutex
		seen []PreferenceState
	)
	cancel := p.Subscribe(func(s PreferenceState) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer cancel()

	router.Go("/yaml", nil, true)
	waitLoaded(t, p.State, prefsLoaded("yaml"))

	close(jsonGate)
	p.Close()

	state := p.State()
	assert.Equal(t, "yaml", state.Tool)
	assert.Equal(t, map[string]any{"from": "yaml"}, state.Value)

	mu.Lock()
	defer mu.Unlock()
	for _, s := range seen {
		if s.Tool == "json" {
			assert.True(t, s.Loading, "json load must never be applied")
		}
	}
}

func TestPreferencesSaveDuringLoadWins(t *testing.T) {
	store := newFakePrefs()
	store.data["json"] = map[string]any{"a": 1}
	gate := store.gate("json")

	router := query.NewRouter("/json", nil)
	p := NewPreferences(context.Background(), router, store, map[string]any{"indent": 2})

	require.True(t, p.State().Loading)
	require.NoError(t, p.Save(context.Background(), map[string]any{"b": 2}))

	close(gate)
	p.Close()

	want := map[string]any{"indent": 2, "b": 2}
	assert.Equal(t, want, p.State().Value)
	assert.False(t, p.State().Loading)
	assert.Equal(t, want, store.stored("json"))
	assert.NotContains(t, store.stored("json"), "a", "stored keys are overwritten while loading")
}

func TestPreferencesFollowRedirect(t *testing.T) {
	for i := 0; i < 20; i++ {
		store := newFakePrefs()
		store.data["base64"] = map[string]any{"urlSafe": true}

		router := query.NewRouter("/json", nil)
		p := NewPreferences(context.Background(), router, store, nil)
		waitLoaded(t, p.State, prefsLoaded("json"))

		cancel := router.SubscribePath(func(path string) {
			if path == "/b64" {
				router.Go("/base64", nil, false)
			}
		})

		router.Go("/b64", nil, true)
		state := waitLoaded(t, p.State, prefsLoaded("base64"))
		assert.Equal(t, map[string]any{"urlSafe": true}, state.Value)

		cancel()
		p.Close()
		assert.Equal(t, "base64", p.State().Tool)
	}
}

func TestHistoryFollowRedirect(t *testing.T) {
	store := &fakeHistory{}
	router := query.NewRouter("/json", nil)
	h := NewHistory(context.Background(), router, store)
	defer h.Close()
	waitLoaded(t, h.State, historyHas("json", 0))

	cancel := router.SubscribePath(func(path string) {
		if path == "/b64" {
			router.Go("/base64", nil, false)
		}
	})
	defer cancel()

	router.Go("/b64", nil, true)
	waitLoaded(t, h.State, historyHas("base64", 0))
	assert.Equal(t, "/base64", router.Path())
}

func TestPreferencesSameToolDoesNotReload(t *testing.T) {
	store := newFakePrefs()
	router := query.NewRouter("/json/a", nil)
	p := NewPreferences(context.Background(), router, store, nil)
	defer p.Close()

	waitLoaded(t, p.State, prefsLoaded("json"))

	var calls int
	var mu sync.Mutex
	cancel := p.Subscribe(func(PreferenceState) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	defer cancel()

	router.Go("/JSON/b", nil, true)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestPreferencesErrors(t *testing.T) {
	store := newFakePrefs()
	store.err = storage.ErrUnavailable

	router := query.NewRouter("/json", nil)
	p := NewPreferences(context.Background(), router, store, map[string]any{"a": 1})
	defer p.Close()

	state := waitLoaded(t, p.State, prefsLoaded("json"))
	assert.ErrorIs(t, state.Err, storage.ErrUnavailable)
	assert.Equal(t, map[string]any{"a": 1}, state.Value, "defaults stay visible on failure")

	err := p.Save(context.Background(), map[string]any{"b": 2})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.ErrorIs(t, p.State().Err, storage.ErrUnavailable)
}

// fakeHistory is an in-memory HistoryStore.
type fakeHistory struct {
	mu      sync.Mutex
	nextID  int64
	entries []storage.HistoryRecord
	err     error
}

func (f *fakeHistory) Add(_ context.Context, tool string, params url.Values, e history.Entry) (storage.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return storage.HistoryRecord{}, f.err
	}
	f.nextID++
	in, _ := e.Input.(string)
	rec := storage.HistoryRecord{
		ID:        f.nextID,
		Tool:      tool,
		Input:     []byte(in),
		InputType: "text/plain",
		Params:    params.Encode(),
		CreatedAt: f.nextID,
	}
	f.entries = append(f.entries, rec)
	return rec, nil
}

func (f *fakeHistory) List(_ context.Context, tool string, limit int) ([]history.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var items []history.Item
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].Tool == tool {
			items = append(items, history.Item{HistoryRecord: f.entries[i]})
		}
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeHistory) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rec := range f.entries {
		if rec.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeHistory) Clear(_ context.Context, tool string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	kept := f.entries[:0]
	for _, rec := range f.entries {
		if rec.Tool != tool {
			kept = append(kept, rec)
		}
	}
	f.entries = kept
	return nil
}

func historyHas(tool string, n int) func(HistoryState) bool {
	return func(s HistoryState) bool { return s.Tool == tool && !s.Loading && len(s.Entries) == n }
}

func TestHistoryAddSnapshotsQuery(t *testing.T) {
	store := &fakeHistory{}
	router := query.NewRouter("/base64", url.Values{"mode": {"decode"}})
	h := NewHistory(context.Background(), router, store)
	defer h.Close()

	waitLoaded(t, h.State, historyHas("base64", 0))

	rec, err := h.Add(context.Background(), history.Entry{Input: "aGk=", Output: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "base64", rec.Tool)
	assert.Equal(t, "mode=decode", rec.Params)

	state := waitLoaded(t, h.State, historyHas("base64", 1))
	assert.Equal(t, rec.ID, state.Entries[0].ID)
}

func TestHistoryRemoveAndClear(t *testing.T) {
	store := &fakeHistory{}
	router := query.NewRouter("/url", nil)
	h := NewHistory(context.Background(), router, store)
	defer h.Close()

	ctx := context.Background()
	first, err := h.Add(ctx, history.Entry{Input: "a"})
	require.NoError(t, err)
	_, err = h.Add(ctx, history.Entry{Input: "b"})
	require.NoError(t, err)
	waitLoaded(t, h.State, historyHas("url", 2))

	require.NoError(t, h.Remove(ctx, first.ID))
	waitLoaded(t, h.State, historyHas("url", 1))

	require.NoError(t, h.Clear(ctx))
	waitLoaded(t, h.State, historyHas("url", 0))
}

func TestHistoryFollowsRouterWithLimit(t *testing.T) {
	store := &fakeHistory{}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := store.Add(ctx, "hash", nil, history.Entry{Input: "x"})
		require.NoError(t, err)
	}

	router := query.NewRouter("/", nil)
	h := NewHistory(ctx, router, store, WithLimit(3))
	defer h.Close()

	waitLoaded(t, h.State, historyHas(HomeTool, 0))

	router.Go("/hash", nil, true)
	state := waitLoaded(t, h.State, historyHas("hash", 3))
	assert.Equal(t, int64(5), state.Entries[0].ID)
}

func TestHistoryErrorsSurfaceInState(t *testing.T) {
	boom := errors.New("boom")
	store := &fakeHistory{err: boom}
	router := query.NewRouter("/json", nil)
	h := NewHistory(context.Background(), router, store)
	defer h.Close()

	state := waitLoaded(t, h.State, func(s HistoryState) bool { return s.Tool == "json" && !s.Loading })
	assert.ErrorIs(t, state.Err, boom)

	_, err := h.Add(context.Background(), history.Entry{Input: "x"})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, h.State().Err, boom)
}
