// Package persistence defines the interface for durably storing entity
// memory snapshots in a storage backend.
//
// Snapshots are append-only: every write adds a new version, and restore
// reads the latest one. Compaction history therefore survives restarts
// without the engine ever mutating rows in place.
package persistence

import (
	"context"
	"errors"

	"github.com/papercomputeco/strata/pkg/engine"
)

// ErrNoSnapshot is returned by Latest when an entity has no stored state.
var ErrNoSnapshot = errors.New("no snapshot for entity")

// Sink persists and restores entity memory snapshots.
type Sink interface {
	// Write appends a new snapshot version for the snapshot's entity.
	Write(ctx context.Context, snap engine.Snapshot) error

	// Latest returns the most recently written snapshot for an entity,
	// or ErrNoSnapshot.
	Latest(ctx context.Context, entity string) (engine.Snapshot, error)

	// Versions returns how many snapshot versions an entity has.
	Versions(ctx context.Context, entity string) (int, error)

	// Close closes the sink and releases any resources.
	Close() error
}
