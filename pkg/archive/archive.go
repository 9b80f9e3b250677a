// Package archive provides the append-only, all-time record of every memory
// item ever produced, indexed by level.
//
// The archive grows monotonically: items are appended at creation and are
// never removed, even after they are evicted from the active ledger. It is
// what allows a summary's covers graph to be walked back down to the raw
// detail it replaced.
package archive

import (
	"sync"
	"time"

	"github.com/papercomputeco/strata/pkg/memory"
)

// NotFoundError is returned when an item does not exist in the archive.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "item not found"
	}

	return "item not found: " + e.ID
}

// LevelStats describes one populated archive level.
type LevelStats struct {
	Level  int       `json:"level"`
	Count  int       `json:"count"`
	Oldest time.Time `json:"oldest"`
	Newest time.Time `json:"newest"`
}

// Stats summarizes the archive contents per level.
type Stats struct {
	Total  int          `json:"total"`
	Levels []LevelStats `json:"levels"`
}

// Store is the append-only per-level item archive.
type Store struct {
	// mu guards byLevel and byID.
	mu sync.RWMutex

	// byLevel holds every item ever placed at a level, in insertion order.
	byLevel map[int][]*memory.Item

	// byID indexes the same items for O(1) lookup.
	byID map[string]*memory.Item
}

// NewStore creates an empty archive store.
func NewStore() *Store {
	return &Store{
		byLevel: make(map[int][]*memory.Item),
		byID:    make(map[string]*memory.Item),
	}
}

// Put appends an item at its level. Re-putting an already archived ID is a
// no-op so replays stay idempotent.
func (s *Store) Put(item *memory.Item) {
	if item == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[item.ID]; ok {
		return
	}

	s.byLevel[item.Level] = append(s.byLevel[item.Level], item)
	s.byID[item.ID] = item
}

// Reset drops every archived item. Only state imports call this; normal
// operation never removes from the archive.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byLevel = make(map[int][]*memory.Item)
	s.byID = make(map[string]*memory.Item)
}

// Get retrieves an item by ID.
func (s *Store) Get(id string) (*memory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.byID[id]
	if !ok {
		return nil, NotFoundError{ID: id}
	}

	return item, nil
}

// Has reports whether an item exists in the archive.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byID[id]
	return ok
}

// ItemsAt returns a copy of the items archived at the given level, in
// insertion order.
func (s *Store) ItemsAt(level int) []*memory.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.byLevel[level]
	out := make([]*memory.Item, len(items))
	copy(out, items)
	return out
}

// Levels returns the populated levels, ascending.
func (s *Store) Levels() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var levels []int
	for level, items := range s.byLevel {
		if len(items) > 0 {
			levels = append(levels, level)
		}
	}
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j] < levels[j-1]; j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
	return levels
}

// MaxLevel returns the highest populated level, or -1 for an empty archive.
func (s *Store) MaxLevel() int {
	levels := s.Levels()
	if len(levels) == 0 {
		return -1
	}
	return levels[len(levels)-1]
}

// Count returns the total number of archived items.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byID)
}

// FlattenedCovers returns the deduplicated concatenation of the covers of
// the item's covered children, preserving child order. For a merged summary
// this is the id set its inputs covered; for a level-1 summary it is empty
// (raw items cover nothing).
func (s *Store) FlattenedCovers(id string) ([]string, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	var flat []string
	seen := make(map[string]bool)
	for _, coverID := range item.Covers {
		child, err := s.Get(coverID)
		if err != nil {
			continue
		}
		for _, grandID := range child.Covers {
			if !seen[grandID] {
				seen[grandID] = true
				flat = append(flat, grandID)
			}
		}
	}
	return flat, nil
}

// Stats reports per-level counts and timestamp ranges.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Total: len(s.byID)}
	for _, level := range s.levelsLocked() {
		items := s.byLevel[level]
		ls := LevelStats{Level: level, Count: len(items)}
		for i, item := range items {
			if i == 0 || item.CreatedAt.Before(ls.Oldest) {
				ls.Oldest = item.CreatedAt
			}
			if i == 0 || item.CreatedAt.After(ls.Newest) {
				ls.Newest = item.CreatedAt
			}
		}
		stats.Levels = append(stats.Levels, ls)
	}
	return stats
}

// levelsLocked returns populated levels ascending. Callers hold s.mu.
func (s *Store) levelsLocked() []int {
	var levels []int
	for level, items := range s.byLevel {
		if len(items) > 0 {
			levels = append(levels, level)
		}
	}
	for i := 1; i < len(levels); i++ {
		for j := i; j > 0 && levels[j] < levels[j-1]; j-- {
			levels[j], levels[j-1] = levels[j-1], levels[j]
		}
	}
	return levels
}
