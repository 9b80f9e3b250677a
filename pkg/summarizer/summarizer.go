// Package summarizer defines the port to the external text-generation
// backend that produces abstractive summaries and higher-level merges.
//
// The two calls on [Summarizer] are the only suspension points in the
// compaction path. Providers are pluggable via configuration:
//
//	[summarizer]
//	provider = "ollama"   # or "anthropic", "openai", "static"
package summarizer

import (
	"context"

	"github.com/papercomputeco/strata/pkg/memory"
)

// Summarizer produces bounded-length abstractive syntheses of memory items.
//
// Implementations must not mutate their inputs, and must report failure
// (timeout, malformed backend output) as an error, never as an empty or
// garbage success.
type Summarizer interface {
	// Summarize produces an abstractive summary of the given items, written
	// from the engine persona's perspective and referring to speakerLabel by
	// name. Items arrive in ledger order.
	Summarize(ctx context.Context, items []*memory.Item, speakerLabel string) (string, error)

	// Merge produces a shorter synthesis of multiple same-level summaries,
	// destined for targetLevel.
	Merge(ctx context.Context, summaries []*memory.Item, targetLevel int, speakerLabel string) (string, error)
}
