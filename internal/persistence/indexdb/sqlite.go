// Package indexdb maintains a sqlite read-model index over the id
// subsystem's audit events and saved snapshots. It is strictly secondary:
// losing it loses query convenience, never document state.
package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"idprop.dev/internal/idprop"
	"idprop.dev/internal/scene"
)

// SQLiteIndex implements idprop.EventSink. Writes go through a single-writer
// goroutine so host callbacks never wait on the database.
type SQLiteIndex struct {
	db *sql.DB

	// ch is never closed: sinks are shared across goroutines, and a writer
	// racing Close must at worst drop a request, never panic. Shutdown is
	// signalled through quit instead.
	ch   chan req
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSnapshot
	reqSync
)

type req struct {
	kind reqKind

	event    idprop.Event
	snapshot SnapshotRow
	done     chan struct{}
}

// SnapshotRow records one saved snapshot.
type SnapshotRow struct {
	Path       string
	DocumentID string
	Blocks     int
	Scenes     int
	SavedAt    time.Time
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Buffered: a load-time rebuild of a large document emits a burst of
		// collision and allocation events.
		ch:   make(chan req, 4096),
		quit: make(chan struct{}),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload; NORMAL is enough durability for a
	// secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			type TEXT NOT NULL,
			kind TEXT NOT NULL,
			id INTEGER NOT NULL,
			name TEXT,
			field TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind_id ON events(kind, id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			path TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			blocks INTEGER NOT NULL,
			scenes INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.quit)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteEvent(ev idprop.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: ev}:
	default:
		// Drop if the indexer falls behind; the JSONL trail is the record.
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(row SnapshotRow) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: row}:
	default:
	}
}

// Sync blocks until every previously enqueued write has been applied.
func (s *SQLiteIndex) Sync() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-s.quit:
		return
	}
	select {
	case <-done:
	case <-s.quit:
	}
}

func (s *SQLiteIndex) loop() {
	for {
		select {
		case r := <-s.ch:
			s.apply(r)
		case <-s.quit:
			// Drain what was enqueued before the shutdown flag flipped.
			for {
				select {
				case r := <-s.ch:
					s.apply(r)
				default:
					return
				}
			}
		}
	}
}

func (s *SQLiteIndex) apply(r req) {
	switch r.kind {
	case reqEvent:
		ev := r.event
		_, _ = s.db.Exec(
			`INSERT INTO events (at, type, kind, id, name, field) VALUES (?, ?, ?, ?, ?, ?)`,
			ev.At.Format(time.RFC3339Nano), ev.Type, string(ev.Kind), ev.ID, ev.Name, ev.Field,
		)
	case reqSnapshot:
		row := r.snapshot
		_, _ = s.db.Exec(
			`INSERT OR REPLACE INTO snapshots (path, document_id, blocks, scenes, saved_at) VALUES (?, ?, ?, ?, ?)`,
			row.Path, row.DocumentID, row.Blocks, row.Scenes, row.SavedAt.Format(time.RFC3339),
		)
	case reqSync:
		close(r.done)
	}
}

// CountByType returns how many events of one type have been indexed.
func (s *SQLiteIndex) CountByType(eventType string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE type = ?`, eventType).Scan(&n)
	return n, err
}

// RecentEvents returns up to limit most recent events, newest first.
func (s *SQLiteIndex) RecentEvents(limit int) ([]idprop.Event, error) {
	rows, err := s.db.Query(
		`SELECT at, type, kind, id, name, field FROM events ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []idprop.Event
	for rows.Next() {
		var ev idprop.Event
		var at, kind string
		if err := rows.Scan(&at, &ev.Type, &kind, &ev.ID, &ev.Name, &ev.Field); err != nil {
			return nil, err
		}
		ev.At, _ = time.Parse(time.RFC3339Nano, at)
		ev.Kind = scene.Kind(kind)
		out = append(out, ev)
	}
	return out, rows.Err()
}
