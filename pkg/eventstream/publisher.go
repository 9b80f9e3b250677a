package eventstream

import "context"

// Publisher publishes compaction events to an event stream backend.
type Publisher interface {
	PublishCompaction(ctx context.Context, event *CompactionAppliedEvent) error
	Close() error
}
