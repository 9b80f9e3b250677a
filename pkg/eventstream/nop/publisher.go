package nop

import (
	"context"

	"github.com/papercomputeco/strata/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishCompaction validates input and otherwise does nothing.
func (p *Publisher) PublishCompaction(_ context.Context, event *eventstream.CompactionAppliedEvent) error {
	if event == nil {
		return eventstream.ErrNilCompactionEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
