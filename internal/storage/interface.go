/*
Package storage implements the local record store for tool history and
per-tool preferences.

The store holds exactly two collections: an append-only history log keyed by
an auto-incrementing id and indexed by tool and creation time, and a
preferences table keyed by tool so that writes are natural upserts.

The database is stored at ~/.devtools-hub/store.db and uses modernc.org/sqlite
(a pure Go, CGo-free implementation). Failures are returned to the caller;
see ErrUnavailable and ErrQuotaExceeded.
*/
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Storage defines the interface for local record store operations.
type Storage interface {
	// Init opens the database and runs migrations.
	Init() error

	// InsertHistory stores a history record and returns its assigned id.
	InsertHistory(ctx context.Context, rec HistoryRecord) (int64, error)

	// CountHistory returns the number of live history records for a tool.
	CountHistory(ctx context.Context, tool string) (int, error)

	// ListHistory returns a tool's records ordered by creation time.
	// A non-positive limit returns every record.
	ListHistory(ctx context.Context, tool string, order Order, limit int) ([]HistoryRecord, error)

	// DeleteHistory removes records by id. Missing ids are ignored.
	DeleteHistory(ctx context.Context, ids ...int64) error

	// DeleteHistoryByTool removes every record of a tool and returns the deleted ids.
	DeleteHistoryByTool(ctx context.Context, tool string) ([]int64, error)

	// ToolStats summarizes history per tool.
	ToolStats(ctx context.Context) ([]ToolStat, error)

	// GetPreference returns the preference record for a tool, or nil if none exists.
	GetPreference(ctx context.Context, tool string) (*PreferenceRecord, error)

	// PutPreference inserts or replaces the preference record for rec.Tool.
	PutPreference(ctx context.Context, rec PreferenceRecord) error

	// DeletePreference removes a tool's preference record. Missing records are ignored.
	DeletePreference(ctx context.Context, tool string) error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db         *sql.DB
	dbPath     string
	quotaPages int
	enabled    bool
	log        zerolog.Logger
	mu         sync.Mutex
	initOnce   sync.Once
	initErr    error
}

// Option configures a SQLiteStorage.
type Option func(*SQLiteStorage)

// WithQuotaPages caps the database size at n pages (PRAGMA max_page_count).
// Writes beyond the cap fail with ErrQuotaExceeded. Zero means no cap.
func WithQuotaPages(n int) Option {
	return func(s *SQLiteStorage) {
		s.quotaPages = n
	}
}

// WithLogger sets the logger used for migration and warning messages.
func WithLogger(l zerolog.Logger) Option {
	return func(s *SQLiteStorage) {
		s.log = l.With().Str("component", "storage").Logger()
	}
}

// DefaultPath returns ~/.devtools-hub/store.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".devtools-hub", "store.db"), nil
}

// NewStorage creates a storage instance at the default path.
//
// If the home directory cannot be resolved the storage is disabled and every
// operation fails with ErrUnavailable.
func NewStorage(opts ...Option) *SQLiteStorage {
	path, err := DefaultPath()
	if err != nil {
		s := NewStorageAt("", opts...)
		s.enabled = false
		s.initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		s.log.Warn().Err(err).Msg("local store disabled")
		return s
	}
	return NewStorageAt(path, opts...)
}

// NewStorageAt creates a storage instance backed by the database file at path.
// Nothing is opened until Init is called.
func NewStorageAt(path string, opts ...Option) *SQLiteStorage {
	s := &SQLiteStorage{
		dbPath:  path,
		enabled: true,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Init opens the database and runs migrations.
//
// If initialization fails the storage stays disabled and every later
// operation fails with ErrUnavailable.
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return s.initErr
	}

	s.initOnce.Do(func() {
		s.initErr = s.open()
		if s.initErr != nil {
			s.enabled = false
			s.log.Warn().Err(s.initErr).Str("path", s.dbPath).Msg("local store disabled")
			if s.db != nil {
				s.db.Close()
				s.db = nil
			}
		}
	})

	return s.initErr
}

func (s *SQLiteStorage) open() error {
	dbDir := filepath.Dir(s.dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create db directory: %v", ErrUnavailable, err)
	}

	db, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return fmt.Errorf("%w: failed to open database: %v", ErrUnavailable, err)
	}
	// One connection keeps pragmas and the store mutex meaningful.
	db.SetMaxOpenConns(1)
	s.db = db

	if err := db.Ping(); err != nil {
		return fmt.Errorf("%w: failed to ping database: %v", ErrUnavailable, err)
	}

	if err := s.runMigrations(); err != nil {
		return classify("migrate", fmt.Errorf("failed to run migrations: %w", err))
	}

	return nil
}

func (s *SQLiteStorage) dsn() string {
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(5000)")
	if s.quotaPages > 0 {
		params.Add("_pragma", fmt.Sprintf("max_page_count(%d)", s.quotaPages))
	}
	return "file:" + s.dbPath + "?" + params.Encode()
}

// Close closes the database connection. Later operations fail with ErrUnavailable.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// conn returns the open database or ErrUnavailable. Callers hold s.mu.
func (s *SQLiteStorage) conn() (*sql.DB, error) {
	if !s.enabled || s.db == nil {
		return nil, ErrUnavailable
	}
	return s.db, nil
}
