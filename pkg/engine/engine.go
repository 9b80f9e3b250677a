// Package engine is the per-entity facade over the memory system. It owns
// the active ledger and the archive for one entity and serializes all
// mutation behind a single lock, so the compaction rules always observe a
// consistent ledger.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/archive"
	"github.com/papercomputeco/strata/pkg/decompress"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/policy"
	"github.com/papercomputeco/strata/pkg/recall"
	"github.com/papercomputeco/strata/pkg/search"
	"github.com/papercomputeco/strata/pkg/summarizer"
)

const (
	// DefaultMaxIngestChars bounds a single ingested message.
	DefaultMaxIngestChars = 16384

	// DefaultContextChars is the context budget used when a caller passes
	// a non-positive maxChars to BuildContext.
	DefaultContextChars = 4096
)

// Stats is a point-in-time snapshot of an entity's memory state.
type Stats struct {
	Entity            string        `json:"entity"`
	CountsByLevel     map[int]int   `json:"counts_by_level"`
	ActiveItems       int           `json:"active_items"`
	ActiveChars       int           `json:"active_chars"`
	BudgetMax         int           `json:"budget_max"`
	BudgetUsedPercent float64       `json:"budget_used_percent"`
	SummaryRatio      float64       `json:"summary_ratio"`
	Archive           archive.Stats `json:"archive"`
}

// Engine binds one entity's ledger, archive, and the compaction, search,
// and decompression machinery behind a single lock.
type Engine struct {
	mu sync.RWMutex

	entity  string
	speaker string

	ledger  *memory.Ledger
	archive *archive.Store

	policy   *policy.Engine
	decomp   *decompress.Engine
	searcher *search.Engine

	maxIngestChars int
	onActions      func(entity string, actions []policy.Action)
	logger         *zap.Logger
}

// Config holds configuration for a new engine.
type Config struct {
	// Entity names the memory owner (one engine per entity). Required.
	Entity string

	// Speaker is the default conversation partner label used when an
	// ingest call does not carry one.
	Speaker string

	// Ledger holds the compaction tunables.
	Ledger memory.LedgerConfig

	// Summarizer is the summarization port. Required.
	Summarizer summarizer.Summarizer

	// Recaller is the optional external memory service shared by search
	// and decompression fallback.
	Recaller recall.Recaller

	// PortTimeout bounds each summarizer call. Zero means the policy
	// engine default.
	PortTimeout time.Duration

	// MaxIngestChars bounds a single ingested message. Zero means
	// DefaultMaxIngestChars.
	MaxIngestChars int

	// OnActions, when set, is invoked after each ingestion that produced
	// at least one compaction action. It runs outside the entity lock.
	OnActions func(entity string, actions []policy.Action)

	// Logger is the configured zap logger. Required.
	Logger *zap.Logger
}

// NewEngine creates an engine for one entity.
func NewEngine(c Config) *Engine {
	store := archive.NewStore()

	maxIngest := c.MaxIngestChars
	if maxIngest <= 0 {
		maxIngest = DefaultMaxIngestChars
	}

	return &Engine{
		entity:  c.Entity,
		speaker: c.Speaker,
		ledger:  memory.NewLedger(c.Ledger),
		archive: store,
		policy: policy.NewEngine(policy.Config{
			Summarizer:  c.Summarizer,
			Archive:     store,
			PortTimeout: c.PortTimeout,
			Logger:      c.Logger,
		}),
		decomp: decompress.NewEngine(decompress.Config{
			Archive:  store,
			Recaller: c.Recaller,
			Logger:   c.Logger,
		}),
		searcher: search.NewEngine(search.Config{
			Archive:  store,
			Recaller: c.Recaller,
			Logger:   c.Logger,
		}),
		maxIngestChars: maxIngest,
		onActions:      c.OnActions,
		logger:         c.Logger,
	}
}

// Entity returns the engine's entity name.
func (e *Engine) Entity() string {
	return e.entity
}

// Ingest appends a raw item to the active ledger, archives it, and runs the
// compaction rules. It returns the actions the rules applied, in rule order.
//
// Empty and oversized text is rejected with ErrMalformedInput and leaves no
// trace in ledger or archive.
func (e *Engine) Ingest(ctx context.Context, text, role, speakerLabel string) ([]policy.Action, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty text", ErrMalformedInput)
	}
	if len(text) > e.maxIngestChars {
		return nil, fmt.Errorf("%w: text exceeds %d chars", ErrMalformedInput, e.maxIngestChars)
	}

	speaker := speakerLabel
	if speaker == "" {
		speaker = e.speaker
	}

	e.mu.Lock()
	item := memory.NewRawItem(text, role, memory.ExtractTopics(text))
	e.ledger.Append(item)
	e.archive.Put(item)

	actions := e.policy.Evaluate(ctx, e.ledger, speaker)
	e.mu.Unlock()

	e.logger.Debug("ingested",
		zap.String("entity", e.entity),
		zap.String("item_id", item.ID),
		zap.Int("actions", len(actions)))

	if e.onActions != nil && len(actions) > 0 {
		e.onActions(e.entity, actions)
	}

	return actions, nil
}

// BuildContext assembles a prompt context within maxChars. Packing order is
// active summaries first (higher level wins, then most recent), then the
// most recent raw items. A non-empty query additionally pulls the best
// archive matches to the front.
func (e *Engine) BuildContext(ctx context.Context, query string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultContextChars
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]struct{})
	var parts []string
	used := 0

	add := func(id, text string) bool {
		if _, ok := seen[id]; ok {
			return true
		}
		if used+len(text) > maxChars {
			return false
		}
		seen[id] = struct{}{}
		parts = append(parts, text)
		used += len(text)
		return true
	}

	if query != "" {
		out := e.searcher.Search(ctx, query, -1)
		for i, res := range out.Results {
			if i >= 3 {
				break
			}
			add(res.Item.ID, res.Item.Text)
		}
	}

	for _, s := range e.sortedSummaries() {
		if !add(s.ID, s.Text) {
			break
		}
	}

	raws := e.ledger.RawItems()
	for i := len(raws) - 1; i >= 0; i-- {
		if !add(raws[i].ID, raws[i].Text) {
			break
		}
	}

	return strings.Join(parts, "\n\n")
}

// sortedSummaries returns active summaries ordered higher level first, most
// recent first within a level. Callers hold at least the read lock.
func (e *Engine) sortedSummaries() []*memory.Item {
	var sums []*memory.Item
	for _, item := range e.ledger.Items() {
		if item.IsSummary() {
			sums = append(sums, item)
		}
	}
	sort.SliceStable(sums, func(i, j int) bool {
		if sums[i].Level != sums[j].Level {
			return sums[i].Level > sums[j].Level
		}
		return sums[i].CreatedAt.After(sums[j].CreatedAt)
	})
	return sums
}

// Stats reports the entity's current memory state.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	counts := make(map[int]int)
	chars := 0
	for _, item := range e.ledger.Items() {
		counts[item.Level]++
		chars += item.CharCount
	}

	usedPercent := 0.0
	if e.ledger.BudgetMax > 0 {
		usedPercent = float64(chars) / float64(e.ledger.BudgetMax) * 100
	}

	return Stats{
		Entity:            e.entity,
		CountsByLevel:     counts,
		ActiveItems:       e.ledger.Len(),
		ActiveChars:       chars,
		BudgetMax:         e.ledger.BudgetMax,
		BudgetUsedPercent: usedPercent,
		SummaryRatio:      e.ledger.SummaryRatio(),
		Archive:           e.archive.Stats(),
	}
}

// Decompress reconstructs an archived item down to targetLevel.
func (e *Engine) Decompress(ctx context.Context, itemID string, targetLevel int) decompress.Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.decomp.Decompress(ctx, itemID, targetLevel)
}

// Search scans archive levels top-down for the query.
func (e *Engine) Search(ctx context.Context, query string, maxLevel int) search.Output {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.searcher.Search(ctx, query, maxLevel)
}

// AdvancedSearch runs a filtered, ranked search across archive levels.
func (e *Engine) AdvancedSearch(ctx context.Context, opts search.Options) search.Output {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.searcher.AdvancedSearch(ctx, opts)
}

// LedgerItems returns a deep copy of the active ledger, oldest first.
func (e *Engine) LedgerItems() []*memory.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	items := e.ledger.Items()
	out := make([]*memory.Item, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// ArchiveItems returns deep copies of the archived items at one level.
func (e *Engine) ArchiveItems(level int) []*memory.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	items := e.archive.ItemsAt(level)
	out := make([]*memory.Item, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
