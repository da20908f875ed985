package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pv-go/internal/database/migrations"
	"pv-go/internal/pv"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteHistory implements pv.History on a SQLite database.
type SQLiteHistory struct {
	db   *sql.DB
	path string
}

// NewSQLiteHistory opens the database at path, applying any pending
// migrations. path can be a file path or ":memory:".
func NewSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return &SQLiteHistory{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection.
// The pool is limited to one connection: the CLI is single-threaded, and an
// in-memory database exists only on the connection that created it.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

const syncRunColumns = `id, mode, forced, started_at, finished_at, status, uploaded, downloaded, conflicts, error`

// StartSync records a running cycle and returns its id.
func (s *SQLiteHistory) StartSync(mode string, force bool, startedAt time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO sync_runs (mode, forced, started_at, status) VALUES (?, ?, ?, ?)`,
		mode, force, formatTime(startedAt), string(pv.StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("creating sync run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading sync run id: %w", err)
	}
	return id, nil
}

// FinishSync records the outcome of the cycle with the given id.
func (s *SQLiteHistory) FinishSync(id int64, outcome pv.SyncOutcome) error {
	res, err := s.db.Exec(
		`UPDATE sync_runs
		    SET finished_at = ?, status = ?, uploaded = ?, downloaded = ?, conflicts = ?, error = ?
		  WHERE id = ?`,
		formatTime(outcome.FinishedAt), string(outcome.Status),
		outcome.Uploaded, outcome.Downloaded, outcome.Conflicts, outcome.Error, id,
	)
	if err != nil {
		return fmt.Errorf("finishing sync run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing sync run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finishing sync run: no run with id %d", id)
	}
	return nil
}

// LastSync returns the most recent cycle, or nil if none was recorded.
func (s *SQLiteHistory) LastSync() (*pv.SyncRecord, error) {
	row := s.db.QueryRow(`SELECT ` + syncRunColumns + ` FROM sync_runs ORDER BY id DESC LIMIT 1`)
	rec, err := scanSyncRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last sync run: %w", err)
	}
	return rec, nil
}

// ListSyncs returns up to limit cycles, newest first. A non-positive limit
// returns every cycle.
func (s *SQLiteHistory) ListSyncs(limit int) ([]*pv.SyncRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+syncRunColumns+` FROM sync_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}
	defer rows.Close()

	var out []*pv.SyncRecord
	for rows.Next() {
		rec, err := scanSyncRun(rows)
		if err != nil {
			return nil, fmt.Errorf("listing sync runs: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}
	return out, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteHistory) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteHistory) CheckMigrations() error {
	return migrations.Status(s.db)
}

// Close closes the database connection.
func (s *SQLiteHistory) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row rowScanner) (*pv.SyncRecord, error) {
	var (
		rec        pv.SyncRecord
		startedAt  string
		finishedAt sql.NullString
		status     string
	)
	err := row.Scan(&rec.ID, &rec.Mode, &rec.Force, &startedAt, &finishedAt, &status,
		&rec.Uploaded, &rec.Downloaded, &rec.Conflicts, &rec.Error)
	if err != nil {
		return nil, err
	}
	rec.Status = pv.SyncStatus(status)
	if rec.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("sync run %d started_at: %w", rec.ID, err)
	}
	if finishedAt.Valid {
		if rec.FinishedAt, err = parseTime(finishedAt.String); err != nil {
			return nil, fmt.Errorf("sync run %d finished_at: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

var _ pv.History = (*SQLiteHistory)(nil)
