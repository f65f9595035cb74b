package storage

import (
	"database/sql"
	"fmt"
)

// migration represents a single schema version step.
type migration struct {
	version int
	name    string
	up      func(tx *sql.Tx) error
}

// migrations lists every schema version in order. New versions must be
// appended and must only add tables, columns or indexes.
var migrations = []migration{
	{version: 1, name: "initial_schema", up: migration001InitialSchema},
	{version: 2, name: "history_tool_created_index", up: migration002ToolCreatedIndex},
}

// SchemaVersion is the latest schema version known to this build.
func SchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// runMigrations executes database schema migrations.
func (s *SQLiteStorage) runMigrations() error {
	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		s.log.Info().Int("version", m.version).Str("name", m.name).Msg("running migration")
		if err := s.applyMigration(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
	}

	return nil
}

// applyMigration runs one migration and records it in the same transaction.
func (s *SQLiteStorage) applyMigration(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.up(tx); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
		return err
	}
	return tx.Commit()
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

// migration001InitialSchema creates the history and preferences collections.
func migration001InitialSchema(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tool TEXT NOT NULL,
			input BLOB NOT NULL,
			output BLOB NOT NULL,
			input_type TEXT NOT NULL,
			output_type TEXT NOT NULL,
			params TEXT NOT NULL DEFAULT '{}',
			label TEXT,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_history_tool
		ON history(tool)
	`); err != nil {
		return fmt.Errorf("failed to create history tool index: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_history_created_at
		ON history(created_at)
	`); err != nil {
		return fmt.Errorf("failed to create history created_at index: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS preferences (
			tool TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create preferences table: %w", err)
	}

	return nil
}

// migration002ToolCreatedIndex adds the composite index used by the ordered
// per-tool range scans of ListHistory and retention.
func migration002ToolCreatedIndex(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_history_tool_created_at
		ON history(tool, created_at, id)
	`); err != nil {
		return fmt.Errorf("failed to create history tool/created_at index: %w", err)
	}
	return nil
}
