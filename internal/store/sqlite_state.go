package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskdeck-cli/internal/model"

	_ "modernc.org/sqlite"
)

// Store keeps local client state in an SQLite file under Dir: the last
// snapshot fetched from each server (shown until the first live fetch
// completes) and a journal of dispatched commands.
type Store struct {
	Dir string
}

func (s Store) sqlitePath() string {
	return filepath.Join(s.Dir, "state.sqlite")
}

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return nil, errors.New("store: empty dir")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// WAL lets the TUI and one-shot CLI commands share the file.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLiteState(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLiteState(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			server TEXT PRIMARY KEY,
			tasks_json TEXT NOT NULL,
			current_log TEXT NOT NULL,
			fetched_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS journal (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			server TEXT NOT NULL,
			kind TEXT NOT NULL,
			task_id TEXT NOT NULL,
			detail TEXT NOT NULL,
			ok INTEGER NOT NULL,
			message TEXT NOT NULL,
			at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_at ON journal(at_unixms);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_task ON journal(task_id);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// CachedSnapshot is the last snapshot successfully fetched from a server.
type CachedSnapshot struct {
	Snapshot  model.Snapshot
	FetchedAt time.Time
}

func (s Store) SaveSnapshot(ctx context.Context, server string, snap model.Snapshot) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tasks := snap.Tasks
	if tasks == nil {
		tasks = []model.Task{}
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT OR REPLACE INTO snapshots(server, tasks_json, current_log, fetched_at_unixms) VALUES(?, ?, ?, ?)`,
		server, string(raw), snap.CurrentLog, time.Now().UTC().UnixMilli())
	return err
}

// LoadSnapshot returns the cached snapshot for server; ok is false when none was saved.
func (s Store) LoadSnapshot(ctx context.Context, server string) (CachedSnapshot, bool, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return CachedSnapshot{}, false, err
	}
	defer db.Close()

	var (
		tasksJSON string
		logText   string
		atMs      int64
	)
	err = db.QueryRowContext(ctx, `SELECT tasks_json, current_log, fetched_at_unixms FROM snapshots WHERE server = ?`, server).
		Scan(&tasksJSON, &logText, &atMs)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedSnapshot{}, false, nil
	}
	if err != nil {
		return CachedSnapshot{}, false, err
	}
	var tasks []model.Task
	if err := json.Unmarshal([]byte(tasksJSON), &tasks); err != nil {
		return CachedSnapshot{}, false, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return CachedSnapshot{
		Snapshot:  model.Snapshot{Tasks: tasks, CurrentLog: logText},
		FetchedAt: time.UnixMilli(atMs).UTC(),
	}, true, nil
}
