package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "ticksched/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS ticks (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL UNIQUE,
	run_id    TEXT NOT NULL,
	at        TEXT NOT NULL,
	event     TEXT NOT NULL,
	task      TEXT,
	priority  INTEGER NOT NULL DEFAULT 0,
	result    TEXT,
	policy    TEXT,
	took_ms   INTEGER NOT NULL DEFAULT 0,
	err       TEXT,
	pending   INTEGER NOT NULL DEFAULT 0,
	flushed   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS ticks_run ON ticks(run_id);
`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("journal.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer; the recorder is the only producer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	log.Debug("journal opened", logx.String("driver", "sqlite"), logx.String("path", path))
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Append(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ticks(id, run_id, at, event, task, priority, result, policy, took_ms, err, pending, flushed)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.RunID, e.At.UTC().Format(time.RFC3339Nano), e.Event, nullStr(e.Task), e.Priority,
		nullStr(e.Result), nullStr(e.Policy), e.TookMS, nullStr(e.Error), e.Pending, e.Flushed,
	)
	return err
}

func (s *sqliteStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, at, event, task, priority, result, policy, took_ms, err, pending, flushed
		 FROM ticks ORDER BY seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                          Entry
			at                         string
			task, result, policy, errS sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RunID, &at, &e.Event, &task, &e.Priority, &result, &policy, &e.TookMS, &errS, &e.Pending, &e.Flushed); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.Task, e.Result, e.Policy, e.Error = task.String, result.String, policy.String, errS.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
