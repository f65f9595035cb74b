// Package preference stores one JSON object of preferences per tool.
package preference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/devtools-hub/internal/metrics"
	"github.com/khanglvm/devtools-hub/internal/storage"
)

// ErrEmptyTool is returned when an operation is called without a tool key.
var ErrEmptyTool = errors.New("tool must not be empty")

// Service reads and writes tool preferences.
type Service struct {
	store storage.Storage
	now   func() time.Time
	log   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l.With().Str("component", "preference").Logger()
	}
}

// NewService creates a preference service backed by store.
func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored preferences of tool. It returns nil, without an
// error, when nothing is stored or the stored data is not a JSON object.
func (s *Service) Get(ctx context.Context, tool string) (map[string]any, error) {
	if tool == "" {
		return nil, ErrEmptyTool
	}

	rec, err := s.store.GetPreference(ctx, tool)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(rec.Data), &data); err != nil {
		s.log.Warn().Err(err).Str("tool", tool).Msg("ignoring unparsable preferences")
		return nil, nil
	}
	return data, nil
}

// Set replaces the preferences of tool with data. Keys missing from data are
// dropped; use Merge to keep them.
func (s *Service) Set(ctx context.Context, tool string, data map[string]any) error {
	if tool == "" {
		return ErrEmptyTool
	}
	return s.put(ctx, tool, data, "set")
}

func (s *Service) put(ctx context.Context, tool string, data map[string]any, op string) error {
	if data == nil {
		data = map[string]any{}
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	rec := storage.PreferenceRecord{
		Tool:      tool,
		Data:      string(encoded),
		UpdatedAt: s.now().UnixMilli(),
	}
	if err := s.store.PutPreference(ctx, rec); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	metrics.PreferenceWritesTotal.WithLabelValues(op).Inc()
	return nil
}

// Merge shallow-merges partial into the stored preferences of tool and
// returns the result. A nil value in partial removes that key.
//
// The read and the write are separate store operations; concurrent merges of
// the same tool may lose updates.
func (s *Service) Merge(ctx context.Context, tool string, partial map[string]any) (map[string]any, error) {
	current, err := s.Get(ctx, tool)
	if err != nil {
		return nil, err
	}

	merged := MergeShallow(current, partial)
	if err := s.put(ctx, tool, merged, "merge"); err != nil {
		return nil, err
	}
	return merged, nil
}

// Delete removes the preferences of tool. Deleting missing preferences is a
// no-op.
func (s *Service) Delete(ctx context.Context, tool string) error {
	if tool == "" {
		return ErrEmptyTool
	}
	if err := s.store.DeletePreference(ctx, tool); err != nil {
		return fmt.Errorf("failed to delete preferences: %w", err)
	}
	metrics.PreferenceWritesTotal.WithLabelValues("delete").Inc()
	return nil
}

// MergeShallow returns a new map with the keys of overlay laid over base.
// Neither argument is modified. A nil value in overlay removes that key.
func MergeShallow(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	maps.Copy(out, base)
	for k, v := range overlay {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
