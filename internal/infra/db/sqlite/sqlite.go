// Package sqlite is the default persistent job ledger, a single file on
// local disk opened with modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS detection_jobs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL,
	model        TEXT NOT NULL,
	confidence   REAL NOT NULL,
	display_mode TEXT NOT NULL,
	upload_name  TEXT NOT NULL,
	result_name  TEXT NOT NULL DEFAULT '',
	media_kind   TEXT NOT NULL,
	size_bytes   INTEGER NOT NULL DEFAULT 0,
	last_error   TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_detection_jobs_created_at ON detection_jobs (created_at);`

// Open opens (or creates) the ledger at path and applies the schema.
// ":memory:" gives a private in-process database.
func Open(path string) (*sql.DB, error) {
	memory := path == ":memory:"
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if memory {
		// Every new connection to :memory: would see an empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{"PRAGMA busy_timeout = 10000", "PRAGMA synchronous = NORMAL"}
	if !memory {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return db, nil
}
