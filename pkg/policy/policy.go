// Package policy implements the compression policy engine: the three
// compaction rules that keep the active ledger inside its budget by
// summarizing old detail upward through the level hierarchy.
//
// Rules run in fixed order on every evaluation:
//
//	R1 CreateL1       — enough raw items accumulated, fold the oldest window
//	                    into a level-1 summary.
//	R2 BudgetReplace  — char budget exceeded, replace the oldest raw block
//	                    with a summary.
//	R3 MergeUp        — the ledger is summary-heavy, merge the two oldest
//	                    same-level summaries one level up.
//
// A failed summarizer call aborts only its own rule: nothing is removed from
// the ledger until the port call has succeeded, so a failure leaves the
// ledger byte-for-byte unchanged for that rule.
package policy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/archive"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/summarizer"
)

const (
	// recentRawReserve is the number of most recent raw items that are never
	// selected for summarization. Protects immediate conversational context.
	recentRawReserve = 2

	// budgetReplaceBlock is the size of the raw block R2 replaces.
	budgetReplaceBlock = 3

	// DefaultPortTimeout bounds each summarizer call. Expiry is treated
	// identically to a port failure: rule no-op, ledger unchanged.
	DefaultPortTimeout = 30 * time.Second
)

// Engine evaluates and executes compaction actions against a ledger.
type Engine struct {
	summarizer  summarizer.Summarizer
	archive     *archive.Store
	portTimeout time.Duration
	logger      *zap.Logger
}

// Config holds configuration for the policy engine.
type Config struct {
	// Summarizer is the port to the text-generation backend. Required.
	Summarizer summarizer.Summarizer

	// Archive receives every produced summary at creation. Required.
	Archive *archive.Store

	// PortTimeout bounds each summarizer call.
	// Defaults to DefaultPortTimeout if zero.
	PortTimeout time.Duration

	// Logger is the configured zap logger. Required.
	Logger *zap.Logger
}

// NewEngine creates a policy engine.
func NewEngine(c Config) *Engine {
	timeout := c.PortTimeout
	if timeout <= 0 {
		timeout = DefaultPortTimeout
	}

	return &Engine{
		summarizer:  c.Summarizer,
		archive:     c.Archive,
		portTimeout: timeout,
		logger:      c.Logger,
	}
}

// Evaluate runs R1, R2 and R3 in order against the ledger and returns one
// Action per rule that fired and committed. A ledger that satisfies no rule
// comes back untouched with an empty slice.
//
// Evaluate mutates the ledger and appends produced summaries to the archive;
// it is the only writer of either structure. Callers serialize access.
func (e *Engine) Evaluate(ctx context.Context, ledger *memory.Ledger, speakerLabel string) []Action {
	var actions []Action

	if action, ok := e.createL1(ctx, ledger, speakerLabel); ok {
		actions = append(actions, action)
	}
	if action, ok := e.budgetReplace(ctx, ledger, speakerLabel); ok {
		actions = append(actions, action)
	}
	if action, ok := e.mergeUp(ctx, ledger, speakerLabel); ok {
		actions = append(actions, action)
	}

	return actions
}

// createL1 implements R1. Fires when enough raw items have accumulated:
// the selection window is the L1Threshold raw items immediately preceding
// the two reserved most recent raws.
func (e *Engine) createL1(ctx context.Context, ledger *memory.Ledger, speaker string) (Action, bool) {
	raws := ledger.RawItems()
	threshold := ledger.L1Threshold
	if threshold <= 0 || len(raws) < threshold+recentRawReserve {
		return Action{}, false
	}

	window := raws[len(raws)-(threshold+recentRawReserve) : len(raws)-recentRawReserve]
	if len(window) < threshold {
		return Action{}, false
	}

	return e.replaceWithSummary(ctx, ledger, window, speaker, ActionCreateL1)
}

// budgetReplace implements R2. Fires when the active char total exceeds the
// budget: the oldest contiguous block of raw items is replaced, reserving
// the two most recent raws. No-op when fewer than budgetReplaceBlock raw
// items remain beyond the reserve.
func (e *Engine) budgetReplace(ctx context.Context, ledger *memory.Ledger, speaker string) (Action, bool) {
	if ledger.ActiveCharTotal() <= ledger.BudgetMax {
		return Action{}, false
	}

	raws := ledger.RawItems()
	eligible := len(raws) - recentRawReserve
	if eligible < budgetReplaceBlock {
		return Action{}, false
	}

	block := raws[:budgetReplaceBlock]
	return e.replaceWithSummary(ctx, ledger, block, speaker, ActionBudgetReplace)
}

// replaceWithSummary runs the shared R1/R2 mechanics: summarize the window,
// build a level-1 item covering it, swap it into the ledger at the position
// of the first removed item, and archive the summary. The remove step only
// runs after the port call succeeds.
func (e *Engine) replaceWithSummary(ctx context.Context, ledger *memory.Ledger, window []*memory.Item, speaker string, kind ActionKind) (Action, bool) {
	portCtx, cancel := context.WithTimeout(ctx, e.portTimeout)
	defer cancel()

	text, err := e.summarizer.Summarize(portCtx, window, speaker)
	if err != nil {
		e.logger.Warn("summarization failed, rule skipped",
			zap.String("rule", string(kind)),
			zap.Int("window", len(window)),
			zap.Error(err),
		)
		return Action{}, false
	}

	summary, err := memory.NewSummaryItem(1, text, window, memory.ExtractTopics(text))
	if err != nil {
		e.logger.Warn("summary construction failed, rule skipped",
			zap.String("rule", string(kind)),
			zap.Error(err),
		)
		return Action{}, false
	}

	evicted := make([]string, 0, len(window))
	for _, item := range window {
		evicted = append(evicted, item.ID)
	}

	insertAt := ledger.IndexOf(window[0].ID)
	ledger.RemoveMany(evicted)
	ledger.InsertAt(insertAt, summary)
	e.archive.Put(summary)

	e.logger.Info("compaction rule fired",
		zap.String("rule", string(kind)),
		zap.String("summary_id", summary.ID),
		zap.Int("evicted", len(evicted)),
		zap.Int("budget_after", ledger.ActiveCharTotal()),
	)

	return Action{
		Kind:        kind,
		Produced:    []*memory.Item{summary},
		EvictedIDs:  evicted,
		BudgetAfter: ledger.ActiveCharTotal(),
	}, true
}

// mergeUp implements R3. Fires when the summary ratio crosses the
// hierarchical threshold: the two oldest summaries at the lowest populated
// summary level are merged one level up. Merged summaries lose positional
// fidelity and go to the ledger's end.
func (e *Engine) mergeUp(ctx context.Context, ledger *memory.Ledger, speaker string) (Action, bool) {
	if ledger.SummaryRatio() <= ledger.HierarchicalThreshold {
		return Action{}, false
	}

	var pair []*memory.Item
	var level int
	for _, l := range ledger.SummaryLevels() {
		sums := ledger.SummariesAt(l)
		if len(sums) >= 2 {
			pair = sums[:2]
			level = l
			break
		}
	}
	if pair == nil {
		return Action{}, false
	}

	portCtx, cancel := context.WithTimeout(ctx, e.portTimeout)
	defer cancel()

	text, err := e.summarizer.Merge(portCtx, pair, level+1, speaker)
	if err != nil {
		e.logger.Warn("merge failed, rule skipped",
			zap.Int("level", level),
			zap.Error(err),
		)
		return Action{}, false
	}

	merged, err := memory.NewSummaryItem(level+1, text, pair, memory.ExtractTopics(text))
	if err != nil {
		e.logger.Warn("merged summary construction failed, rule skipped",
			zap.Int("level", level),
			zap.Error(err),
		)
		return Action{}, false
	}

	evicted := []string{pair[0].ID, pair[1].ID}
	ledger.RemoveMany(evicted)
	ledger.Append(merged)
	e.archive.Put(merged)

	e.logger.Info("compaction rule fired",
		zap.String("rule", string(ActionMergeUp)),
		zap.String("summary_id", merged.ID),
		zap.Int("target_level", level+1),
		zap.Int("budget_after", ledger.ActiveCharTotal()),
	)

	return Action{
		Kind:        ActionMergeUp,
		Produced:    []*memory.Item{merged},
		EvictedIDs:  evicted,
		BudgetAfter: ledger.ActiveCharTotal(),
	}, true
}
