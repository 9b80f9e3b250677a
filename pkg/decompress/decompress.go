// Package decompress reconstructs lower-level content from a summary by
// walking its covers graph down through the archive.
//
// Decompression is lossy-but-traceable: when a covered item was never
// archived (or an external recall backend is configured), the engine
// degrades to fallback items rather than failing, and the result's path
// records exactly which levels required it.
package decompress

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/archive"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/recall"
)

// Result is the outcome of one decompression walk.
type Result struct {
	// Success reports whether any items were reconstructed.
	Success bool `json:"success"`

	// ReachedLevel is the level the walk stopped at.
	ReachedLevel int `json:"reached_level"`

	// Items is the reconstructed working set at ReachedLevel, in covers order.
	Items []*memory.Item `json:"items"`

	// Path traces the walk, one entry per level descended,
	// e.g. "L1: 2 items" or "L0: 3 items (fallback)".
	Path []string `json:"path"`

	// UsedFallback reports whether any level required fallback synthesis
	// or external recall.
	UsedFallback bool `json:"used_fallback"`
}

// Engine walks covers graphs against an archive, with optional external
// recall for missing covers.
type Engine struct {
	archive  *archive.Store
	recaller recall.Recaller
	logger   *zap.Logger
}

// Config holds configuration for the decompression engine.
type Config struct {
	// Archive is the item archive to walk. Required.
	Archive *archive.Store

	// Recaller is the optional external memory service queried when covers
	// are missing from the archive. When nil, degraded placeholder items
	// are synthesized instead.
	Recaller recall.Recaller

	// Logger is the configured zap logger. Required.
	Logger *zap.Logger
}

// NewEngine creates a decompression engine.
func NewEngine(c Config) *Engine {
	return &Engine{
		archive:  c.Archive,
		recaller: c.Recaller,
		logger:   c.Logger,
	}
}

// Decompress reconstructs the content of itemID down to targetLevel.
//
// The walk descends one level at a time: every cover of the working set is
// looked up in the archive one level below; missing covers trigger fallback.
// It terminates at targetLevel or when the working set empties.
func (e *Engine) Decompress(ctx context.Context, itemID string, targetLevel int) Result {
	item, err := e.archive.Get(itemID)
	if err != nil {
		e.logger.Debug("decompress: item not in archive",
			zap.String("item_id", itemID),
		)
		return Result{Success: false, ReachedLevel: targetLevel}
	}

	if targetLevel < 0 {
		targetLevel = 0
	}

	result := Result{
		ReachedLevel: item.Level,
		Items:        []*memory.Item{item},
	}

	working := []*memory.Item{item}
	current := item.Level

	for current > targetLevel && len(working) > 0 {
		below := current - 1
		var next []*memory.Item
		levelFallback := false

		for _, parent := range working {
			for _, coverID := range parent.Covers {
				child, err := e.archive.Get(coverID)
				if err == nil && child.Level == below {
					next = append(next, child)
					continue
				}

				// Cover missing from the archive: recover what we can.
				levelFallback = true
				next = append(next, e.fallbackItems(ctx, parent, coverID, below)...)
			}
		}

		entry := fmt.Sprintf("L%d: %d items", below, len(next))
		if levelFallback {
			entry += " (fallback)"
			result.UsedFallback = true
		}
		result.Path = append(result.Path, entry)

		working = next
		current = below
		result.ReachedLevel = current
		result.Items = next
	}

	result.Success = len(result.Items) > 0
	return result
}

// fallbackItems recovers a substitute for one missing cover. When an
// external recaller is configured it is queried with the parent summary's
// text; otherwise a degraded placeholder is synthesized. Either way the
// items are tagged as fallback.
func (e *Engine) fallbackItems(ctx context.Context, parent *memory.Item, coverID string, level int) []*memory.Item {
	if e.recaller != nil {
		results, err := e.recaller.Recall(ctx, parent.Text)
		if err == nil && len(results) > 0 {
			items := make([]*memory.Item, 0, len(results))
			for _, r := range results {
				items = append(items, fallbackItem(uuid.NewString(), r.Text, level))
			}
			return items
		}
		if err != nil {
			e.logger.Warn("decompress: external recall failed, degrading to placeholder",
				zap.String("cover_id", coverID),
				zap.Error(err),
			)
		}
	}

	text := fmt.Sprintf("[reconstructed from %q]", excerpt(parent.Text, 80))
	return []*memory.Item{fallbackItem(coverID, text, level)}
}

// fallbackItem builds a degraded placeholder. Placeholders at summary levels
// carry no covers, so a subsequent descent through them ends the walk.
func fallbackItem(id, text string, level int) *memory.Item {
	kind := memory.KindRaw
	if level > 0 {
		kind = memory.KindSummary
	}

	item := memory.NewRawItem(text, "", nil)
	item.ID = id
	item.Kind = kind
	item.Level = level
	item.Fallback = true
	return item
}

func excerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
