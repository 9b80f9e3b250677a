package memory

// Ledger is the ordered container of currently active items plus the
// budget and threshold configuration that drives compaction.
//
// The ledger is a pure data structure: no locking, no side effects, no
// errors. Callers (the policy engine, behind the per-entity lock) are
// responsible for upholding the covers and ordering invariants.
type Ledger struct {
	items []*Item

	// BudgetMax is the target ceiling for the total CharCount of active
	// items. It may be transiently exceeded between an ingestion and the
	// next policy evaluation.
	BudgetMax int

	// L1Threshold is the raw-item count that triggers level-1 summarization.
	L1Threshold int

	// HierarchicalThreshold is the fraction of active items that must be
	// summaries before a merge is attempted. Must sit in (0,1).
	HierarchicalThreshold float64
}

// LedgerConfig holds the tunables for a new ledger.
type LedgerConfig struct {
	BudgetMax             int
	L1Threshold           int
	HierarchicalThreshold float64
}

// NewLedger creates an empty ledger with the given configuration.
func NewLedger(c LedgerConfig) *Ledger {
	return &Ledger{
		BudgetMax:             c.BudgetMax,
		L1Threshold:           c.L1Threshold,
		HierarchicalThreshold: c.HierarchicalThreshold,
	}
}

// Append adds an item to the end of the ledger.
func (l *Ledger) Append(item *Item) {
	l.items = append(l.items, item)
}

// InsertAt inserts an item at the given index, preserving the order of the
// remaining items. Indexes past the end append.
func (l *Ledger) InsertAt(index int, item *Item) {
	if index < 0 {
		index = 0
	}
	if index >= len(l.items) {
		l.items = append(l.items, item)
		return
	}

	l.items = append(l.items, nil)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = item
}

// RemoveMany removes the items with the given IDs, preserving the order of
// the survivors. Unknown IDs are ignored.
func (l *Ledger) RemoveMany(ids []string) {
	if len(ids) == 0 {
		return
	}

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := l.items[:0]
	for _, item := range l.items {
		if !drop[item.ID] {
			kept = append(kept, item)
		}
	}
	// Clear trailing slots so removed items are not retained by the backing array.
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = nil
	}
	l.items = kept
}

// IndexOf returns the position of the item with the given ID, or -1.
func (l *Ledger) IndexOf(id string) int {
	for i, item := range l.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of active items.
func (l *Ledger) Len() int {
	return len(l.items)
}

// Items returns a copy of the active item slice. The items themselves are
// shared; callers must not mutate them.
func (l *Ledger) Items() []*Item {
	out := make([]*Item, len(l.items))
	copy(out, l.items)
	return out
}

// RawItems returns the active raw items in ledger order.
func (l *Ledger) RawItems() []*Item {
	var raws []*Item
	for _, item := range l.items {
		if item.IsRaw() {
			raws = append(raws, item)
		}
	}
	return raws
}

// SummariesAt returns the active summaries at the given level, in ledger order.
func (l *Ledger) SummariesAt(level int) []*Item {
	var sums []*Item
	for _, item := range l.items {
		if item.IsSummary() && item.Level == level {
			sums = append(sums, item)
		}
	}
	return sums
}

// SummaryLevels returns the summary levels currently present, ascending.
func (l *Ledger) SummaryLevels() []int {
	seen := make(map[int]bool)
	var levels []int
	for _, item := range l.items {
		if item.IsSummary() && !seen[item.Level] {
			seen[item.Level] = true
			levels = append(levels, item.Level)
		}
	}
	// Insertion sort: the level count is tiny (practically ≤3).
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j] < levels[j-1]; j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
	return levels
}

// ActiveCharTotal returns the sum of CharCount across active items.
func (l *Ledger) ActiveCharTotal() int {
	total := 0
	for _, item := range l.items {
		total += item.CharCount
	}
	return total
}

// SummaryRatio returns #summaries / #items, or 0 for an empty ledger.
func (l *Ledger) SummaryRatio() float64 {
	if len(l.items) == 0 {
		return 0
	}

	summaries := 0
	for _, item := range l.items {
		if item.IsSummary() {
			summaries++
		}
	}
	return float64(summaries) / float64(len(l.items))
}
