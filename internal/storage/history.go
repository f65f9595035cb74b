package storage

import (
	"context"
	"database/sql"
	"strings"
)

// InsertHistory stores a history record and returns its assigned id.
func (s *SQLiteStorage) InsertHistory(ctx context.Context, rec HistoryRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return 0, classify("insert history", err)
	}

	var label sql.NullString
	if rec.Label != "" {
		label = sql.NullString{String: rec.Label, Valid: true}
	}
	params := rec.Params
	if params == "" {
		params = "{}"
	}

	query := `
		INSERT INTO history (tool, input, output, input_type, output_type, params, label, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := db.ExecContext(ctx, query,
		rec.Tool,
		nonNil(rec.Input),
		nonNil(rec.Output),
		rec.InputType,
		rec.OutputType,
		params,
		label,
		rec.CreatedAt,
	)
	if err != nil {
		return 0, classify("insert history", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify("insert history", err)
	}
	return id, nil
}

// CountHistory returns the number of live history records for a tool.
func (s *SQLiteStorage) CountHistory(ctx context.Context, tool string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return 0, classify("count history", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM history WHERE tool = ?", tool).Scan(&n); err != nil {
		return 0, classify("count history", err)
	}
	return n, nil
}

// ListHistory returns a tool's records ordered by creation time, ties broken
// by id. A non-positive limit returns every record.
func (s *SQLiteStorage) ListHistory(ctx context.Context, tool string, order Order, limit int) ([]HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return nil, classify("list history", err)
	}

	direction := "ASC"
	if order == Descending {
		direction = "DESC"
	}
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT id, tool, input, output, input_type, output_type, params, label, created_at
		FROM history
		WHERE tool = ?
		ORDER BY created_at ` + direction + `, id ` + direction + `
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, tool, limit)
	if err != nil {
		return nil, classify("list history", err)
	}
	defer rows.Close()

	records := []HistoryRecord{}
	for rows.Next() {
		var rec HistoryRecord
		var label sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.Tool,
			&rec.Input,
			&rec.Output,
			&rec.InputType,
			&rec.OutputType,
			&rec.Params,
			&label,
			&rec.CreatedAt,
		); err != nil {
			return nil, classify("list history", err)
		}
		rec.Label = label.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list history", err)
	}

	return records, nil
}

// DeleteHistory removes records by id. Missing ids are ignored.
func (s *SQLiteStorage) DeleteHistory(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return classify("delete history", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM history WHERE id IN ("+placeholders+")", args...); err != nil {
		return classify("delete history", err)
	}
	return nil
}

// DeleteHistoryByTool removes every record of a tool and returns the deleted ids.
func (s *SQLiteStorage) DeleteHistoryByTool(ctx context.Context, tool string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return nil, classify("clear history", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("clear history", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM history WHERE tool = ?", tool)
	if err != nil {
		return nil, classify("clear history", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, classify("clear history", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify("clear history", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM history WHERE tool = ?", tool); err != nil {
		return nil, classify("clear history", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classify("clear history", err)
	}
	return ids, nil
}

// ToolStats summarizes history per tool, most recently used first.
func (s *SQLiteStorage) ToolStats(ctx context.Context) ([]ToolStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn()
	if err != nil {
		return nil, classify("tool stats", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT tool, COUNT(*), MAX(created_at)
		FROM history
		GROUP BY tool
		ORDER BY MAX(created_at) DESC
	`)
	if err != nil {
		return nil, classify("tool stats", err)
	}
	defer rows.Close()

	stats := []ToolStat{}
	for rows.Next() {
		var st ToolStat
		if err := rows.Scan(&st.Tool, &st.Count, &st.LastUsed); err != nil {
			return nil, classify("tool stats", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("tool stats", err)
	}
	return stats, nil
}

// nonNil keeps empty payloads from being stored as NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
