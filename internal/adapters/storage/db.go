package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is one forward-only schema step. Steps run in order inside a transaction.
type migration struct {
	version int
	name    string
	stmt    string
}

var migrations = []migration{
	{
		version: 1,
		name:    "baseline",
		stmt: `
	CREATE TABLE IF NOT EXISTS routine (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		day TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS routine_group (
		row_id INTEGER PRIMARY KEY AUTOINCREMENT,
		routine_id TEXT NOT NULL,
		group_key TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		superset INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL,
		FOREIGN KEY (routine_id) REFERENCES routine(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS routine_exercise (
		row_id INTEGER PRIMARY KEY AUTOINCREMENT,
		routine_id TEXT NOT NULL,
		group_row_id INTEGER,
		position INTEGER NOT NULL,
		exercise_id TEXT NOT NULL DEFAULT '',
		template_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		sets INTEGER NOT NULL DEFAULT 0,
		reps INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (routine_id) REFERENCES routine(id) ON DELETE CASCADE,
		FOREIGN KEY (group_row_id) REFERENCES routine_group(row_id) ON DELETE CASCADE
	);`,
	},
	{
		version: 2,
		name:    "position indexes",
		stmt: `
	CREATE INDEX IF NOT EXISTS idx_routine_group_position ON routine_group (routine_id, position);
	CREATE INDEX IF NOT EXISTS idx_routine_exercise_position ON routine_exercise (routine_id, group_row_id, position);
	CREATE INDEX IF NOT EXISTS idx_routine_day ON routine (day);`,
	},
}

// LatestSchemaVersion returns the version the newest migration brings the schema to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// InitDB prepares a connection for use and brings the schema up to date.
// PRE: db is a valid database connection
// POST: WAL mode and foreign keys enabled, all migrations applied
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return MigrateDB(db)
}

// MigrateDB applies every migration newer than the recorded schema version.
// PRE: db is a valid database connection
// POST: schema_version holds LatestSchemaVersion(); rerunning is a no-op
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		slog.Info("storage_event", "event", "migration_applied", "version", m.version, "name", m.name)
	}
	return nil
}

// SchemaVersion returns the recorded schema version, or 0 for a fresh database.
// PRE: schema_version table exists
// POST: returns version >= 0
func SchemaVersion(db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}
