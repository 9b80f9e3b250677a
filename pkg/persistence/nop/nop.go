// Package nop provides a persistence sink that stores nothing. It is the
// default when no backend is configured.
package nop

import (
	"context"

	"github.com/papercomputeco/strata/pkg/engine"
	"github.com/papercomputeco/strata/pkg/persistence"
)

// Sink implements persistence.Sink by discarding writes.
type Sink struct{}

// NewSink creates a no-op sink.
func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Write(ctx context.Context, snap engine.Snapshot) error {
	return nil
}

func (s *Sink) Latest(ctx context.Context, entity string) (engine.Snapshot, error) {
	return engine.Snapshot{}, persistence.ErrNoSnapshot
}

func (s *Sink) Versions(ctx context.Context, entity string) (int, error) {
	return 0, nil
}

func (s *Sink) Close() error {
	return nil
}
