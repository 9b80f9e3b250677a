// Package search provides proactive search over the memory archive, scanning
// abstraction levels top-down with graceful fallback to an external memory
// service.
//
// Higher abstraction is preferred over granular detail for broad recall:
// the scan stops at the first level that yields a match, which is the whole
// point of keeping level-1 summaries searchable after their raw detail has
// been evicted.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/archive"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/recall"
)

const (
	// SourceArchive marks results served from the local archive.
	SourceArchive = "archive"

	// SourceFallback marks results served by the external memory service.
	SourceFallback = "fallback"
)

// Result is a single search hit.
type Result struct {
	// Item is the matched memory item. Fallback results are synthesized
	// items carrying the recalled text.
	Item *memory.Item `json:"item"`

	// Score is the relevance score (higher = more relevant).
	Score float64 `json:"score"`

	// Source is SourceArchive or SourceFallback.
	Source string `json:"source"`
}

// Output is the outcome of one search.
type Output struct {
	Query        string   `json:"query"`
	Results      []Result `json:"results"`
	Count        int      `json:"count"`
	Path         []string `json:"path"`
	UsedFallback bool     `json:"used_fallback"`
}

// Options parametrizes AdvancedSearch.
type Options struct {
	// Query is the search text. Required.
	Query string `json:"query"`

	// Levels is the explicit allowed level set. Empty means every
	// populated level.
	Levels []int `json:"levels,omitempty"`

	// MinScore drops results scoring below it.
	MinScore float64 `json:"min_score,omitempty"`

	// MaxResults caps the result count. Zero means no cap.
	MaxResults int `json:"max_results,omitempty"`

	// IncludeFallback enables the external memory service when the local
	// archive yields nothing.
	IncludeFallback bool `json:"include_fallback,omitempty"`
}

// Engine searches the archive, read-only, with optional external recall.
type Engine struct {
	archive  *archive.Store
	recaller recall.Recaller
	logger   *zap.Logger
}

// Config holds configuration for the search engine.
type Config struct {
	// Archive is the item archive to scan. Required.
	Archive *archive.Store

	// Recaller is the optional external memory service used when no level
	// yields a match.
	Recaller recall.Recaller

	// Logger is the configured zap logger. Required.
	Logger *zap.Logger
}

// NewEngine creates a search engine.
func NewEngine(c Config) *Engine {
	return &Engine{
		archive:  c.Archive,
		recaller: c.Recaller,
		logger:   c.Logger,
	}
}

// Search scans levels from maxLevel down to 0 and returns the matches from
// the first level that yields any. With no local match anywhere, the
// external memory service is queried and its results tagged as fallback.
func (e *Engine) Search(ctx context.Context, query string, maxLevel int) Output {
	out := Output{Query: query}

	if maxLevel < 0 {
		maxLevel = e.archive.MaxLevel()
	}

	for level := maxLevel; level >= 0; level-- {
		matches := e.matchLevel(query, level)
		if len(matches) == 0 {
			continue
		}

		sortByScore(matches)
		out.Results = matches
		out.Count = len(matches)
		out.Path = append(out.Path, fmt.Sprintf("L%d: %s", level, countNoun(len(matches))))
		return out
	}

	// Nothing local: degrade to the external memory service.
	out.Results = e.recallFallback(ctx, query)
	out.Count = len(out.Results)
	if len(out.Results) > 0 {
		out.UsedFallback = true
		out.Path = append(out.Path, "fallback: "+countNoun(len(out.Results)))
	}
	return out
}

// AdvancedSearch is the parametrized form: explicit level set, minimum
// score, result cap, and a fallback toggle. Unlike Search it collects
// matches across every allowed level and ranks them together.
func (e *Engine) AdvancedSearch(ctx context.Context, opts Options) Output {
	out := Output{Query: opts.Query}

	levels := opts.Levels
	if len(levels) == 0 {
		levels = e.archive.Levels()
	}
	// Scan top-down for a stable path trace.
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))

	var all []Result
	for _, level := range levels {
		matches := e.matchLevel(opts.Query, level)
		kept := matches[:0]
		for _, m := range matches {
			if m.Score >= opts.MinScore {
				kept = append(kept, m)
			}
		}
		if len(kept) > 0 {
			out.Path = append(out.Path, fmt.Sprintf("L%d: %s", level, countNoun(len(kept))))
			all = append(all, kept...)
		}
	}

	if len(all) == 0 && opts.IncludeFallback {
		all = e.recallFallback(ctx, opts.Query)
		if len(all) > 0 {
			out.UsedFallback = true
			out.Path = append(out.Path, "fallback: "+countNoun(len(all)))
		}
	}

	sortByScore(all)
	if opts.MaxResults > 0 && len(all) > opts.MaxResults {
		all = all[:opts.MaxResults]
	}

	out.Results = all
	out.Count = len(all)
	return out
}

// matchLevel returns the archive items at the given level whose text or
// topics contain the query, case-insensitively.
func (e *Engine) matchLevel(query string, level int) []Result {
	needle := strings.ToLower(query)
	var matches []Result

	for _, item := range e.archive.ItemsAt(level) {
		score := relevance(item, needle)
		if score > 0 {
			matches = append(matches, Result{
				Item:   item,
				Score:  score,
				Source: SourceArchive,
			})
		}
	}

	return matches
}

// relevance scores an item against a lowercased query. Text containment and
// topic hits both count; the item's quality scores weight the result so
// authoritative, well-received items rank first.
func relevance(item *memory.Item, needle string) float64 {
	score := 0.0
	if strings.Contains(strings.ToLower(item.Text), needle) {
		score += 0.5
	}
	for _, topic := range item.Topics {
		if strings.Contains(strings.ToLower(topic), needle) {
			score += 1.0
			break
		}
	}
	if score == 0 {
		return 0
	}

	q := item.Quality
	weight := 1.0 + (q.Authority+q.Feedback-q.AccessCost)/3
	if weight < 0.1 {
		weight = 0.1
	}
	return score * weight
}

// recallFallback queries the external memory service, degrading to empty
// results on failure. Recall problems never propagate to search callers.
func (e *Engine) recallFallback(ctx context.Context, query string) []Result {
	if e.recaller == nil {
		return nil
	}

	recalled, err := e.recaller.Recall(ctx, query)
	if err != nil {
		e.logger.Warn("external recall failed, returning empty result",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}

	results := make([]Result, 0, len(recalled))
	for _, r := range recalled {
		item := memory.NewRawItem(r.Text, "", memory.ExtractTopics(r.Text))
		item.Fallback = true
		results = append(results, Result{
			Item:   item,
			Score:  r.Score,
			Source: SourceFallback,
		})
	}
	return results
}

// countNoun renders "1 result" / "3 results" for path traces.
func countNoun(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func sortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
