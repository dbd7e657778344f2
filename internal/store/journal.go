package store

import (
	"context"
	"time"
)

// JournalEntry records one command sent to the service and its outcome.
type JournalEntry struct {
	ID      int64     `json:"id"`
	Server  string    `json:"server"`
	Kind    string    `json:"kind"`
	TaskID  string    `json:"taskId,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	OK      bool      `json:"ok"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

func (s Store) AppendJournal(ctx context.Context, e JournalEntry) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = db.ExecContext(ctx, `INSERT INTO journal(server, kind, task_id, detail, ok, message, at_unixms) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		e.Server, e.Kind, e.TaskID, e.Detail, boolToInt(e.OK), e.Message, at.UTC().UnixMilli())
	return err
}

// ReadJournal returns the most recent entries, newest first. taskID filters
// when non-empty; limit <= 0 returns everything.
func (s Store) ReadJournal(ctx context.Context, taskID string, limit int) ([]JournalEntry, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT id, server, kind, task_id, detail, ok, message, at_unixms FROM journal`
	var args []any
	if taskID != "" {
		q += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	q += ` ORDER BY at_unixms DESC, id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []JournalEntry{}
	for rows.Next() {
		var (
			e    JournalEntry
			ok   int
			atMs int64
		)
		if err := rows.Scan(&e.ID, &e.Server, &e.Kind, &e.TaskID, &e.Detail, &ok, &e.Message, &atMs); err != nil {
			return nil, err
		}
		e.OK = ok != 0
		e.At = time.UnixMilli(atMs).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
