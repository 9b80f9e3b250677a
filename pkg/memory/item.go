// Package memory defines the core data model for the strata engine: memory
// items (raw entries and multi-level summaries) and the active ledger that
// holds them.
//
// Items form a covers graph: every summary records the IDs of the items one
// level below that it was produced from. The graph is what makes compaction
// lossy but traceable: evicted detail can later be reconstructed level by
// level from the archive.
package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates raw ledger entries from summaries.
type Kind string

const (
	// KindRaw is an unsummarized, level-0 ledger entry.
	KindRaw Kind = "raw"

	// KindSummary is an abstractive synthesis of items one level below.
	KindSummary Kind = "summary"
)

// Quality holds the ranking scores attached to an item. Scores are in [0,1]
// and influence result ordering only, never correctness.
type Quality struct {
	// Authority scores how trustworthy the item's source is.
	Authority float64 `json:"authority"`

	// Feedback scores accumulated user signal on the item.
	Feedback float64 `json:"feedback"`

	// AccessCost scores how expensive the item is to re-derive.
	AccessCost float64 `json:"access_cost"`
}

// Item is a single entry in the memory system: either a raw level-0 entry
// produced by ingestion or a level-k summary produced by compaction.
type Item struct {
	// ID uniquely identifies the item across ledger and archive.
	ID string `json:"id"`

	// Kind is KindRaw or KindSummary.
	Kind Kind `json:"kind"`

	// Level is 0 for raw items and ≥1 for summaries.
	Level int `json:"level"`

	// Text is the item content.
	Text string `json:"text"`

	// CharCount caches len(Text) for budget arithmetic.
	CharCount int `json:"char_count"`

	// Topics holds keywords extracted from Text. Order carries no meaning.
	Topics []string `json:"topics,omitempty"`

	// Covers lists, in order, the IDs one level below that this summary was
	// produced from. Always empty for raw items, never empty for summaries.
	Covers []string `json:"covers,omitempty"`

	// Role records who produced the underlying text ("user", "assistant").
	Role string `json:"role,omitempty"`

	// CreatedAt is the item creation time.
	CreatedAt time.Time `json:"created_at"`

	// Quality holds ranking scores. Zero values are valid.
	Quality Quality `json:"quality"`

	// Fallback marks items synthesized as degraded placeholders when the
	// archive could not supply the real covered content.
	Fallback bool `json:"fallback,omitempty"`
}

// NewRawItem creates a level-0 raw item from ingested text.
func NewRawItem(text, role string, topics []string) *Item {
	return &Item{
		ID:        uuid.NewString(),
		Kind:      KindRaw,
		Level:     0,
		Text:      text,
		CharCount: len(text),
		Topics:    topics,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
}

// NewSummaryItem creates a level-k summary covering the given items.
// The covers invariant is enforced by construction: level must be ≥1, covers
// must be non-empty, and every covered item must sit exactly one level below.
func NewSummaryItem(level int, text string, covered []*Item, topics []string) (*Item, error) {
	if level < 1 {
		return nil, fmt.Errorf("summary level must be ≥1, got %d", level)
	}
	if len(covered) == 0 {
		return nil, fmt.Errorf("summary at level %d must cover at least one item", level)
	}

	covers := make([]string, 0, len(covered))
	for _, c := range covered {
		if c.Level != level-1 {
			return nil, fmt.Errorf("summary at level %d cannot cover item %s at level %d", level, c.ID, c.Level)
		}
		covers = append(covers, c.ID)
	}

	return &Item{
		ID:        uuid.NewString(),
		Kind:      KindSummary,
		Level:     level,
		Text:      text,
		CharCount: len(text),
		Topics:    topics,
		Covers:    covers,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Clone returns a deep copy of the item. Topics and Covers slices are copied
// so callers can hold results without aliasing engine state.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}

	dup := *i
	if i.Topics != nil {
		dup.Topics = append([]string(nil), i.Topics...)
	}
	if i.Covers != nil {
		dup.Covers = append([]string(nil), i.Covers...)
	}
	return &dup
}

// IsRaw reports whether the item is a level-0 raw entry.
func (i *Item) IsRaw() bool {
	return i.Kind == KindRaw
}

// IsSummary reports whether the item is a summary of any level.
func (i *Item) IsSummary() bool {
	return i.Kind == KindSummary
}
