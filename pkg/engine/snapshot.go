package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/papercomputeco/strata/pkg/memory"
)

// SchemaVersion is the snapshot wire format version. Bump on incompatible
// changes to Snapshot or memory.Item.
const SchemaVersion = 1

// ArchiveLevel is one archive level in a snapshot, oldest item first.
type ArchiveLevel struct {
	Level int            `json:"level"`
	Items []*memory.Item `json:"items"`
}

// Snapshot is the full serializable state of one entity's memory.
type Snapshot struct {
	SchemaVersion int       `json:"schema_version"`
	Entity        string    `json:"entity"`
	ExportedAt    time.Time `json:"exported_at"`

	BudgetMax             int     `json:"budget_max"`
	L1Threshold           int     `json:"l1_threshold"`
	HierarchicalThreshold float64 `json:"hierarchical_threshold"`

	Ledger  []*memory.Item `json:"ledger"`
	Archive []ArchiveLevel `json:"archive"`
}

// ExportState serializes the entity's full state as JSON. The export is a
// deep copy: mutating the engine afterwards does not affect it.
func (e *Engine) ExportState() ([]byte, error) {
	snap := e.Snapshot()
	return json.MarshalIndent(snap, "", "  ")
}

// Snapshot captures the entity's full state as a deep copy.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		SchemaVersion:         SchemaVersion,
		Entity:                e.entity,
		ExportedAt:            time.Now().UTC(),
		BudgetMax:             e.ledger.BudgetMax,
		L1Threshold:           e.ledger.L1Threshold,
		HierarchicalThreshold: e.ledger.HierarchicalThreshold,
	}

	for _, item := range e.ledger.Items() {
		snap.Ledger = append(snap.Ledger, item.Clone())
	}

	for _, level := range e.archive.Levels() {
		al := ArchiveLevel{Level: level}
		for _, item := range e.archive.ItemsAt(level) {
			al.Items = append(al.Items, item.Clone())
		}
		snap.Archive = append(snap.Archive, al)
	}

	return snap
}

// ImportState replaces the entity's state with a previously exported
// snapshot. A snapshot that fails validation is rejected with
// ErrMalformedInput and the current state is left untouched.
func (e *Engine) ImportState(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return e.ImportSnapshot(snap)
}

// ImportSnapshot replaces the entity's state with an already decoded
// snapshot. Validation failures are rejected with ErrMalformedInput and the
// current state is left untouched.
func (e *Engine) ImportSnapshot(snap Snapshot) error {
	if snap.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: unsupported schema version %d", ErrMalformedInput, snap.SchemaVersion)
	}
	if err := validateSnapshot(snap); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	ledger := memory.NewLedger(memory.LedgerConfig{
		BudgetMax:             snap.BudgetMax,
		L1Threshold:           snap.L1Threshold,
		HierarchicalThreshold: snap.HierarchicalThreshold,
	})
	for _, item := range snap.Ledger {
		ledger.Append(item.Clone())
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ledger = ledger
	e.archive.Reset()
	for _, al := range snap.Archive {
		for _, item := range al.Items {
			e.archive.Put(item.Clone())
		}
	}

	return nil
}

func validateSnapshot(snap Snapshot) error {
	check := func(item *memory.Item, where string) error {
		if item == nil {
			return fmt.Errorf("nil item in %s", where)
		}
		if item.ID == "" {
			return fmt.Errorf("item without ID in %s", where)
		}
		if item.IsSummary() && len(item.Covers) == 0 {
			return fmt.Errorf("summary %s has no covers", item.ID)
		}
		if item.IsRaw() && item.Level != 0 {
			return fmt.Errorf("raw item %s at level %d", item.ID, item.Level)
		}
		return nil
	}

	for _, item := range snap.Ledger {
		if err := check(item, "ledger"); err != nil {
			return err
		}
	}
	for _, al := range snap.Archive {
		for _, item := range al.Items {
			if err := check(item, "archive"); err != nil {
				return err
			}
			if item.Level != al.Level {
				return fmt.Errorf("item %s at level %d filed under level %d", item.ID, item.Level, al.Level)
			}
		}
	}
	return nil
}
