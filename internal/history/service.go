/*
Package history implements the bounded per-tool history log.

Every tool keeps at most Cap entries. Add inserts first and trims afterwards,
as two separate steps: concurrent writers of the same tool may each see a
stale count, so the cap is a soft upper bound under concurrency and exact for
sequential callers.
*/
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/devtools-hub/internal/blob"
	"github.com/khanglvm/devtools-hub/internal/metrics"
	"github.com/khanglvm/devtools-hub/internal/search"
	"github.com/khanglvm/devtools-hub/internal/storage"
)

const (
	// DefaultCap is the number of entries retained per tool.
	DefaultCap = 50

	// DefaultLimit is the page size of List when none is given.
	DefaultLimit = 20
)

var (
	// ErrEmptyTool is returned when an operation is called without a tool key.
	ErrEmptyTool = errors.New("tool must not be empty")

	// ErrSearchDisabled is returned by Search when no index is configured.
	ErrSearchDisabled = errors.New("history search is not enabled")
)

// Index is the subset of the search indexer used by the service.
type Index interface {
	IndexBatch(docs []search.Document) error
	Remove(ids ...int64) error
	RemoveTool(tool string) error
	Search(tool, text string, limit int) ([]search.Hit, error)
}

// Entry is what a page hands over when recording one invocation.
// Input and Output may be a string, a []byte or a blob.Blob.
type Entry struct {
	Input      any
	Output     any
	InputType  string
	OutputType string
	Label      string
}

// Item is a history record prepared for display. InputText and OutputText are
// set only for text-like payloads.
type Item struct {
	storage.HistoryRecord
	InputText  *string `json:"inputText,omitempty"`
	OutputText *string `json:"outputText,omitempty"`
}

// Service manages history entries on top of the local store.
type Service struct {
	store storage.Storage
	index Index
	cap   int
	limit int
	now   func() time.Time
	log   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCap sets the per-tool retention cap. Non-positive values are ignored.
func WithCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cap = n
		}
	}
}

// WithListLimit sets the page size List uses when called without a limit.
// Non-positive values are ignored.
func WithListLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithIndex keeps idx in sync with the store and enables Search.
func WithIndex(idx Index) Option {
	return func(s *Service) {
		s.index = idx
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l.With().Str("component", "history").Logger()
	}
}

// NewService creates a history service backed by store.
func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store: store,
		cap:   DefaultCap,
		limit: DefaultLimit,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cap returns the per-tool retention cap.
func (s *Service) Cap() int {
	return s.cap
}

// Add records one invocation of tool. params is the query state at the time
// of the call and is stored as an opaque JSON snapshot.
//
// After the insert the oldest entries beyond the cap are evicted. A failed
// eviction is logged and does not fail the add; the next add retries it.
func (s *Service) Add(ctx context.Context, tool string, params url.Values, e Entry) (storage.HistoryRecord, error) {
	if tool == "" {
		return storage.HistoryRecord{}, ErrEmptyTool
	}

	in, err := blob.ToBlob(e.Input, e.InputType)
	if err != nil {
		return storage.HistoryRecord{}, fmt.Errorf("invalid input: %w", err)
	}
	out, err := blob.ToBlob(e.Output, e.OutputType)
	if err != nil {
		return storage.HistoryRecord{}, fmt.Errorf("invalid output: %w", err)
	}

	snapshot, err := encodeParams(params)
	if err != nil {
		return storage.HistoryRecord{}, err
	}

	rec := storage.HistoryRecord{
		Tool:       tool,
		Input:      in.Data,
		Output:     out.Data,
		InputType:  in.Type,
		OutputType: out.Type,
		Params:     snapshot,
		Label:      e.Label,
		CreatedAt:  s.now().UnixMilli(),
	}

	rec.ID, err = s.store.InsertHistory(ctx, rec)
	if err != nil {
		return storage.HistoryRecord{}, fmt.Errorf("failed to add history: %w", err)
	}
	metrics.HistoryAddedTotal.WithLabelValues(tool).Inc()

	s.indexRecords(ctx, rec)

	if err := s.enforceRetention(ctx, tool); err != nil {
		s.log.Warn().Err(err).Str("tool", tool).Msg("failed to enforce history retention")
	}

	return rec, nil
}

// enforceRetention evicts the oldest entries of tool beyond the cap.
func (s *Service) enforceRetention(ctx context.Context, tool string) error {
	count, err := s.store.CountHistory(ctx, tool)
	if err != nil {
		return err
	}
	excess := count - s.cap
	if excess <= 0 {
		return nil
	}

	oldest, err := s.store.ListHistory(ctx, tool, storage.Ascending, excess)
	if err != nil {
		return err
	}

	ids := make([]int64, len(oldest))
	for i, rec := range oldest {
		ids[i] = rec.ID
	}
	if err := s.store.DeleteHistory(ctx, ids...); err != nil {
		return err
	}
	metrics.HistoryEvictedTotal.WithLabelValues(tool).Add(float64(len(ids)))
	s.log.Debug().Str("tool", tool).Int("evicted", len(ids)).Msg("evicted old history entries")

	s.unindex(ids...)
	return nil
}

// Trim applies the retention cap to the given tools, or to every tool with
// history when none are given. It is needed after the cap is lowered.
func (s *Service) Trim(ctx context.Context, tools ...string) error {
	if len(tools) == 0 {
		stats, err := s.store.ToolStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tools: %w", err)
		}
		for _, st := range stats {
			if st.Count > s.cap {
				tools = append(tools, st.Tool)
			}
		}
	}

	for _, tool := range tools {
		if err := s.enforceRetention(ctx, tool); err != nil {
			return fmt.Errorf("failed to trim %s: %w", tool, err)
		}
	}
	return nil
}

// List returns up to limit entries of tool, newest first. A non-positive
// limit uses the service's list limit (DefaultLimit unless configured).
func (s *Service) List(ctx context.Context, tool string, limit int) ([]Item, error) {
	if tool == "" {
		return nil, ErrEmptyTool
	}
	if limit <= 0 {
		limit = s.limit
	}

	records, err := s.store.ListHistory(ctx, tool, storage.Descending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	items := make([]Item, 0, len(records))
	for _, rec := range records {
		item, err := toItem(ctx, rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Delete removes a single entry. Deleting a missing id is a no-op.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteHistory(ctx, id); err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	metrics.HistoryDeletedTotal.WithLabelValues("one").Inc()
	s.unindex(id)
	return nil
}

// Clear removes every entry of tool.
func (s *Service) Clear(ctx context.Context, tool string) error {
	if tool == "" {
		return ErrEmptyTool
	}
	if _, err := s.store.DeleteHistoryByTool(ctx, tool); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	metrics.HistoryDeletedTotal.WithLabelValues("all").Inc()

	if s.index != nil {
		if err := s.index.RemoveTool(tool); err != nil {
			s.log.Warn().Err(err).Str("tool", tool).Msg("failed to clear search index")
		}
	}
	return nil
}

// Search returns the entries of tool matching text, best match first.
func (s *Service) Search(ctx context.Context, tool, text string, limit int) ([]Item, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	if tool == "" {
		return nil, ErrEmptyTool
	}

	hits, err := s.index.Search(tool, text, limit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []Item{}, nil
	}

	records, err := s.store.ListHistory(ctx, tool, storage.Descending, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	byID := make(map[int64]storage.HistoryRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	items := make([]Item, 0, len(hits))
	for _, hit := range hits {
		rec, ok := byID[hit.ID]
		if !ok {
			continue
		}
		item, err := toItem(ctx, rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Reindex rebuilds the search index for the given tools, or for every tool
// with history when none are given.
func (s *Service) Reindex(ctx context.Context, tools ...string) error {
	if s.index == nil {
		return ErrSearchDisabled
	}

	if len(tools) == 0 {
		stats, err := s.store.ToolStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tools: %w", err)
		}
		for _, st := range stats {
			tools = append(tools, st.Tool)
		}
	}

	for _, tool := range tools {
		if err := s.index.RemoveTool(tool); err != nil {
			return err
		}
		records, err := s.store.ListHistory(ctx, tool, storage.Descending, 0)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		s.indexRecords(ctx, records...)
	}
	return nil
}

func (s *Service) indexRecords(ctx context.Context, records ...storage.HistoryRecord) {
	if s.index == nil || len(records) == 0 {
		return
	}

	docs := make([]search.Document, 0, len(records))
	for _, rec := range records {
		item, err := toItem(ctx, rec)
		if err != nil {
			s.log.Warn().Err(err).Int64("id", rec.ID).Msg("failed to decode history entry for indexing")
			continue
		}
		doc := search.Document{
			ID:        rec.ID,
			Tool:      rec.Tool,
			Label:     rec.Label,
			CreatedAt: rec.CreatedAt,
		}
		if item.InputText != nil {
			doc.Input = *item.InputText
		}
		if item.OutputText != nil {
			doc.Output = *item.OutputText
		}
		docs = append(docs, doc)
	}

	if err := s.index.IndexBatch(docs); err != nil {
		s.log.Warn().Err(err).Msg("failed to index history entries")
	}
}

func (s *Service) unindex(ids ...int64) {
	if s.index == nil {
		return
	}
	if err := s.index.Remove(ids...); err != nil {
		s.log.Warn().Err(err).Msg("failed to remove history entries from index")
	}
}

// toItem decodes text-like payloads for display.
func toItem(ctx context.Context, rec storage.HistoryRecord) (Item, error) {
	item := Item{HistoryRecord: rec}

	if blob.IsTextType(rec.InputType) {
		text, err := blob.FromBlob(ctx, blob.Blob{Data: rec.Input, Type: rec.InputType})
		if err != nil {
			return Item{}, err
		}
		item.InputText = &text
	}
	if blob.IsTextType(rec.OutputType) {
		text, err := blob.FromBlob(ctx, blob.Blob{Data: rec.Output, Type: rec.OutputType})
		if err != nil {
			return Item{}, err
		}
		item.OutputText = &text
	}
	return item, nil
}

func encodeParams(params url.Values) (string, error) {
	if len(params) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode params: %w", err)
	}
	return string(data), nil
}

// DecodeParams parses a stored params snapshot back into query values.
// Malformed snapshots decode to an empty mapping.
func DecodeParams(snapshot string) url.Values {
	var params url.Values
	if err := json.Unmarshal([]byte(snapshot), &params); err != nil || params == nil {
		return url.Values{}
	}
	return params
}
