// Copyright © 2026 Tandem contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: backend/journal.go
// Summary: SQLite session journal. Records run events (handshake, page
// activations, fatal exits) for post-mortem diagnostics.
//
// Journalling is best-effort: a failed write logs and moves on. The
// coordination protocol never waits on the journal.

package backend

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// EventKind labels a journal row.
type EventKind string

const (
	EventHandshake     EventKind = "handshake"
	EventPageActivated EventKind = "page-activated"
	EventFatal         EventKind = "fatal"
)

// Entry is one journalled event.
type Entry struct {
	ID     string
	RunID  string
	At     time.Time
	Kind   EventKind
	Detail string
}

// Journal persists run events to a SQLite database. A nil *Journal is valid
// and records nothing.
type Journal struct {
	mu    sync.Mutex
	db    *sql.DB
	runID string
}

const journalSchema = `
CREATE TABLE IF NOT EXISTS journal (
	id     TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	at     INTEGER NOT NULL,
	kind   TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_journal_run ON journal(run_id, at);
`

// OpenJournal opens (creating if needed) the journal database at path.
func OpenJournal(path string, runID [16]byte) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(journalSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, runID: ulid.ULID(runID).String()}, nil
}

// Record writes one event row. Safe on a nil journal.
func (j *Journal) Record(kind EventKind, detail string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	id := ulid.Make().String()
	_, err := j.db.Exec(
		`INSERT INTO journal (id, run_id, at, kind, detail) VALUES (?, ?, ?, ?, ?)`,
		id, j.runID, time.Now().UnixMilli(), string(kind), detail,
	)
	if err != nil {
		log.Printf("Journal: Failed to record %s event: %v", kind, err)
	}
}

// Recent returns up to limit entries for this run, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if j == nil {
		return nil, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, run_id, at, kind, detail FROM journal WHERE run_id = ? ORDER BY at DESC, id DESC LIMIT ?`,
		j.runID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at int64
		var kind string
		if err := rows.Scan(&e.ID, &e.RunID, &at, &kind, &e.Detail); err != nil {
			return nil, err
		}
		e.At = time.UnixMilli(at)
		e.Kind = EventKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database. Safe on a nil journal.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}
