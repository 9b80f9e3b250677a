package eventstream

import (
	"time"

	"github.com/papercomputeco/strata/pkg/policy"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCompactionApplied is emitted after compaction rules commit
	// against an entity's ledger.
	EventTypeCompactionApplied = "strata.compaction.applied"
)

// CompactionAppliedEvent is a transport-neutral event payload describing the
// compaction actions one ingestion triggered.
type CompactionAppliedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Entity        string          `json:"entity"`
	Actions       []policy.Action `json:"actions"`
}
