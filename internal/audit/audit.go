// Package audit optionally mirrors session event streams to a durable
// SQLite store. The core kernel keeps no persisted state of its own; this
// is an additive durable-storage layer wired in only at the process
// entrypoint, grounded on a batched background writer.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"banksim/internal/events"
)

const (
	defaultMaxBatch      = 200
	defaultFlushInterval = 2 * time.Second
)

// record is one buffered row awaiting flush.
type record struct {
	sessionID string
	typ       string
	payload   []byte
}

// Writer batches event records and flushes them to SQLite on a timer or
// when the batch fills, so no session worker ever blocks on a disk write
// mid-step.
type Writer struct {
	db *sql.DB

	mu     sync.Mutex
	buffer []record

	flushInterval time.Duration
	maxBatch      int

	done chan struct{}
	wg   sync.WaitGroup
}

// Open creates (if needed) the events table at dsn and returns a Writer.
func Open(dsn string) (*Writer, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	w := &Writer{
		db:            db,
		flushInterval: defaultFlushInterval,
		maxBatch:      defaultMaxBatch,
		done:          make(chan struct{}),
	}
	w.wg.Add(1)
	go w.backgroundFlush()
	return w, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS session_events (
	session_id TEXT NOT NULL,
	type       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// Write enqueues one event for the next flush. The call that fills the
// batch flushes it inline, so that call blocks on the SQLite write.
func (w *Writer) Write(sessionID string, e events.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("audit: marshal event failed: %v", err)
		return
	}

	w.mu.Lock()
	w.buffer = append(w.buffer, record{sessionID: sessionID, typ: string(e.Type), payload: payload})
	full := len(w.buffer) >= w.maxBatch
	w.mu.Unlock()

	if full {
		w.flush()
	}
}

// Forward subscribes to stream and writes every event under sessionID
// until the channel closes (session destroyed or stopped). Intended to be
// run in its own goroutine per session.
func (w *Writer) Forward(sessionID string, stream <-chan events.Event) {
	for e := range stream {
		w.Write(sessionID, e)
	}
}

func (w *Writer) backgroundFlush() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.flush()
		case <-w.done:
			w.flush()
			return
		}
	}
}

func (w *Writer) flush() {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.buffer
	w.buffer = nil
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("audit: begin tx failed: %v", err)
		return
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO session_events (session_id, type, payload) VALUES (?, ?, ?)`)
	if err != nil {
		log.Printf("audit: prepare failed: %v", err)
		tx.Rollback()
		return
	}
	defer stmt.Close()

	for _, r := range batch {
		if _, err := stmt.ExecContext(ctx, r.sessionID, r.typ, string(r.payload)); err != nil {
			log.Printf("audit: insert failed: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("audit: commit failed: %v", err)
	}
}

// Close flushes any remaining buffered records and closes the database
// handle.
func (w *Writer) Close() error {
	close(w.done)
	w.wg.Wait()
	return w.db.Close()
}
