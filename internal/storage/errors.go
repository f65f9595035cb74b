package storage

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/khanglvm/devtools-hub/internal/metrics"
)

var (
	// ErrUnavailable means the store could not be opened or has been closed.
	ErrUnavailable = errors.New("local store unavailable")

	// ErrQuotaExceeded means a write did not fit in the configured quota or on disk.
	ErrQuotaExceeded = errors.New("local store quota exceeded")
)

// classify wraps err with the matching sentinel so callers can test it with
// errors.Is, and counts the failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := "other"
	var sqlErr *sqlite.Error
	switch {
	case errors.Is(err, ErrUnavailable):
		kind = "unavailable"
	case errors.Is(err, ErrQuotaExceeded):
		kind = "quota"
	case errors.As(err, &sqlErr):
		switch sqlErr.Code() & 0xff {
		case sqlite3.SQLITE_FULL:
			kind = "quota"
			err = fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_IOERR:
			kind = "unavailable"
			err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	metrics.StoreErrorsTotal.WithLabelValues(op, kind).Inc()
	return fmt.Errorf("%s: %w", op, err)
}
