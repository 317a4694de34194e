// Package journal keeps a local record of apply runs in SQLite so operators
// can see what past runs did and where a failed run stopped.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded apply run.
type Run struct {
	ID               int64
	StartedAt        time.Time
	FinishedAt       time.Time
	Status           string
	FailedStep       string
	GunicornChanged  bool
	SettingsChanged  bool
	MigrationPending bool
	Migrated         bool
	StaticCollected  bool
	Error            string
}

// Journal is an append-only run log backed by SQLite.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at        TEXT NOT NULL,
	finished_at       TEXT NOT NULL,
	status            TEXT NOT NULL,
	failed_step       TEXT NOT NULL DEFAULT '',
	gunicorn_changed  INTEGER NOT NULL,
	settings_changed  INTEGER NOT NULL,
	migration_pending INTEGER NOT NULL,
	migrated          INTEGER NOT NULL,
	static_collected  INTEGER NOT NULL,
	error             TEXT NOT NULL DEFAULT ''
)`

// Open opens (and if needed creates) the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends one run.
func (j *Journal) Record(run Run) error {
	_, err := j.db.Exec(`
		INSERT INTO runs (
			started_at, finished_at, status, failed_step,
			gunicorn_changed, settings_changed, migration_pending,
			migrated, static_collected, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Status,
		run.FailedStep,
		run.GunicornChanged,
		run.SettingsChanged,
		run.MigrationPending,
		run.Migrated,
		run.StaticCollected,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(limit int) ([]Run, error) {
	rows, err := j.db.Query(`
		SELECT id, started_at, finished_at, status, failed_step,
		       gunicorn_changed, settings_changed, migration_pending,
		       migrated, static_collected, error
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(
			&r.ID, &started, &finished, &r.Status, &r.FailedStep,
			&r.GunicornChanged, &r.SettingsChanged, &r.MigrationPending,
			&r.Migrated, &r.StaticCollected, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
