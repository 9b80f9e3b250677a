// Package recall defines the pluggable contract to an external memory
// service used when the local archive cannot answer a query.
//
// Both the decompression and search paths fall back to a [Recaller] when
// local data is insufficient. The reference implementation is a stub;
// production deployments substitute a vector-search backend without
// touching the core.
//
// Recallers are pluggable via configuration:
//
//	[recall]
//	provider = "static"   # or "vector"
package recall

import "context"

// Result is one ranked result from the external memory service.
type Result struct {
	// ID identifies the recalled item in the external service.
	ID string `json:"id"`

	// Text is the recalled content.
	Text string `json:"text"`

	// Score is the service's relevance score (higher = more relevant).
	Score float64 `json:"score"`
}

// Recaller queries an external memory service and returns ranked results.
//
// Implementations may fail; callers degrade to empty or placeholder results
// and never propagate recall errors to their own callers.
type Recaller interface {
	// Recall returns results relevant to the query, ranked by score.
	Recall(ctx context.Context, query string) ([]Result, error)

	// Close releases recaller resources.
	Close() error
}
