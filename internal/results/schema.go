package results

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
    version INTEGER NOT NULL
);

-- One row per simulation run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    data_file TEXT NOT NULL,
    thresholds_file TEXT NOT NULL,
    steps INTEGER NOT NULL,
    increment REAL NOT NULL,
    total_broken INTEGER NOT NULL DEFAULT 0
);

-- One row per strain step
CREATE TABLE IF NOT EXISTS steps (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    step INTEGER NOT NULL,
    broken INTEGER NOT NULL,
    cumulative INTEGER NOT NULL,
    iterations INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    PRIMARY KEY (run_id, step)
);

-- One row per severed bond
CREATE TABLE IF NOT EXISTS events (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    step INTEGER NOT NULL,
    iteration INTEGER NOT NULL,
    bond_index INTEGER NOT NULL,
    bond_type INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_run_step ON events(run_id, step);
`

// InitSchema creates the schema if needed and stamps the version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_meta`).Scan(&count); err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}
	if count == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_meta (version) VALUES (?)`, SchemaVersion); err != nil {
			return fmt.Errorf("stamping schema version: %w", err)
		}
	}
	return nil
}
