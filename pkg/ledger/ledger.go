// CLAUDE:SUMMARY SQLite ledger of generate/apply runs: paths, per-kind counts, label reduction and outcome.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run kinds.
const (
	KindGenerate = "generate"
	KindApply    = "apply"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Run is one row of the runs table.
type Run struct {
	ID           int64          `json:"id"`
	Kind         string         `json:"kind"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Dataset      string         `json:"dataset"`
	Mapping      string         `json:"mapping"`
	Output       string         `json:"output,omitempty"`
	Labels       int            `json:"labels"`
	References   int            `json:"references"`
	Candidates   int            `json:"candidates"`
	ByKind       map[string]int `json:"by_kind,omitempty"`
	Rows         int            `json:"rows"`
	Skipped      int            `json:"skipped"`
	Fallback     int            `json:"fallback"`
	UniqueBefore int            `json:"unique_before"`
	UniqueAfter  int            `json:"unique_after"`
	Status       string         `json:"status"`
	Error        string         `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// DB manages the runs SQLite table.
type DB struct {
	db *sql.DB
}

const ddl = `CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	kind          TEXT NOT NULL,
	started_at    INTEGER NOT NULL,
	finished_at   INTEGER NOT NULL,
	dataset       TEXT NOT NULL DEFAULT '',
	mapping       TEXT NOT NULL DEFAULT '',
	output        TEXT NOT NULL DEFAULT '',
	labels        INTEGER NOT NULL DEFAULT 0,
	refs          INTEGER NOT NULL DEFAULT 0,
	candidates    INTEGER NOT NULL DEFAULT 0,
	by_kind       TEXT NOT NULL DEFAULT '{}',
	rows_read     INTEGER NOT NULL DEFAULT 0,
	skipped       INTEGER NOT NULL DEFAULT 0,
	fallback      INTEGER NOT NULL DEFAULT 0,
	unique_before INTEGER NOT NULL DEFAULT 0,
	unique_after  INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	error         TEXT
)`

// Open opens (or creates) the ledger at path and ensures the runs table exists.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ledger dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the SQLite connection.
func (l *DB) Close() error {
	return l.db.Close()
}

// Record inserts a run and returns its id. A zero FinishedAt is stamped now,
// an empty Status is derived from Error.
func (l *DB) Record(ctx context.Context, r Run) (int64, error) {
	if r.Kind == "" {
		return 0, fmt.Errorf("record run: empty kind")
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = r.FinishedAt
	}
	if r.Status == "" {
		r.Status = StatusOK
		if r.Error != "" {
			r.Status = StatusError
		}
	}
	byKind := r.ByKind
	if byKind == nil {
		byKind = map[string]int{}
	}
	kinds, err := json.Marshal(byKind)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	var errPtr *string
	if r.Error != "" {
		errPtr = &r.Error
	}

	res, err := l.db.ExecContext(ctx, `INSERT INTO runs
		(kind, started_at, finished_at, dataset, mapping, output, labels, refs, candidates,
		 by_kind, rows_read, skipped, fallback, unique_before, unique_after, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Kind, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.Dataset, r.Mapping, r.Output,
		r.Labels, r.References, r.Candidates, string(kinds), r.Rows, r.Skipped, r.Fallback,
		r.UniqueBefore, r.UniqueAfter, r.Status, errPtr,
	)
	if err != nil {
		return 0, fmt.Errorf("record %s run: %w", r.Kind, err)
	}
	return res.LastInsertId()
}

// List returns the most recent runs first. kind filters when non-empty;
// limit <= 0 returns every run.
func (l *DB) List(ctx context.Context, kind string, limit int) ([]Run, error) {
	q := `SELECT id, kind, started_at, finished_at, dataset, mapping, output, labels, refs,
		candidates, by_kind, rows_read, skipped, fallback, unique_before, unique_after, status, error
		FROM runs`
	var args []any
	if kind != "" {
		q += ` WHERE kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
			kinds             string
			errStr            *string
		)
		if err := rows.Scan(&r.ID, &r.Kind, &started, &finished, &r.Dataset, &r.Mapping, &r.Output,
			&r.Labels, &r.References, &r.Candidates, &kinds, &r.Rows, &r.Skipped, &r.Fallback,
			&r.UniqueBefore, &r.UniqueAfter, &r.Status, &errStr); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		if err := json.Unmarshal([]byte(kinds), &r.ByKind); err != nil {
			return nil, fmt.Errorf("run %d by_kind: %w", r.ID, err)
		}
		if errStr != nil {
			r.Error = *errStr
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
