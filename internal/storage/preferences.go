package storage

import (
	"context"
	"database/sql"
	"errors"
)

// GetPreference returns the preference record for a tool, or nil if none exists.
func (s *SQLiteStorage) GetPreference(ctx context.Context, tool string) (*PreferenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return nil, classify("get preference", err)
	}

	query := `
		SELECT tool, data, updated_at
		FROM preferences
		WHERE tool = ?
	`

	var rec PreferenceRecord
	err = db.QueryRowContext(ctx, query, tool).Scan(&rec.Tool, &rec.Data, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get preference", err)
	}
	return &rec, nil
}

// PutPreference inserts or replaces the preference record for rec.Tool.
func (s *SQLiteStorage) PutPreference(ctx context.Context, rec PreferenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return classify("put preference", err)
	}

	query := `
		INSERT OR REPLACE INTO preferences (tool, data, updated_at)
		VALUES (?, ?, ?)
	`

	if _, err := db.ExecContext(ctx, query, rec.Tool, rec.Data, rec.UpdatedAt); err != nil {
		return classify("put preference", err)
	}
	return nil
}

// DeletePreference removes a tool's preference record. Missing records are ignored.
func (s *SQLiteStorage) DeletePreference(ctx context.Context, tool string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return classify("delete preference", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM preferences WHERE tool = ?", tool); err != nil {
		return classify("delete preference", err)
	}
	return nil
}
