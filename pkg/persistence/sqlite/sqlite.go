// Package sqlite provides a SQLite-backed persistence sink.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/strata/pkg/engine"
	"github.com/papercomputeco/strata/pkg/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entity TEXT NOT NULL,
	schema_version INTEGER NOT NULL,
	exported_at TIMESTAMP NOT NULL,
	state TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_entity ON snapshots(entity, id);
`

// Sink implements persistence.Sink using SQLite.
type Sink struct {
	db *sql.DB
}

// NewSink creates a SQLite-backed sink.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSink(dbPath string) (*Sink, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Sink{db: db}, nil
}

// Write appends a new snapshot version for the snapshot's entity.
func (s *Sink) Write(ctx context.Context, snap engine.Snapshot) error {
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO snapshots (entity, schema_version, exported_at, state) VALUES (?, ?, ?, ?)",
		snap.Entity, snap.SchemaVersion, snap.ExportedAt.UTC().Format(time.RFC3339Nano), string(state))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// Latest returns the most recently written snapshot for an entity.
func (s *Sink) Latest(ctx context.Context, entity string) (engine.Snapshot, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		"SELECT state FROM snapshots WHERE entity = ? ORDER BY id DESC LIMIT 1",
		entity).Scan(&state)
	if err == sql.ErrNoRows {
		return engine.Snapshot{}, persistence.ErrNoSnapshot
	}
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var snap engine.Snapshot
	if err := json.Unmarshal([]byte(state), &snap); err != nil {
		return engine.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return snap, nil
}

// Versions returns how many snapshot versions an entity has.
func (s *Sink) Versions(ctx context.Context, entity string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM snapshots WHERE entity = ?", entity).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *Sink) Close() error {
	return s.db.Close()
}
