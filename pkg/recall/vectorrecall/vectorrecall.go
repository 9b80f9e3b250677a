// Package vectorrecall implements pkg/recall's Recaller over a vector store:
// the query is embedded and matched against previously indexed memory items.
// This is the production external-memory backend; the worker pool keeps the
// index populated as summaries are archived.
package vectorrecall

import (
	"context"
	"fmt"

	"github.com/papercomputeco/strata/pkg/embeddings"
	"github.com/papercomputeco/strata/pkg/recall"
	"github.com/papercomputeco/strata/pkg/vector"
)

// DefaultTopK is the number of results requested per recall.
const DefaultTopK = 5

// Recaller implements recall.Recaller using an Embedder and a vector.Driver.
type Recaller struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	topK     int
}

// Config holds configuration for the vector recaller.
type Config struct {
	// Embedder converts queries to vectors. Required.
	Embedder embeddings.Embedder

	// Driver is the vector store to query. Required.
	Driver vector.Driver

	// TopK is the number of results per recall.
	// Defaults to DefaultTopK if zero.
	TopK int
}

// NewRecaller creates a vector-store-backed recaller.
func NewRecaller(c Config) (*Recaller, error) {
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if c.Driver == nil {
		return nil, fmt.Errorf("vector driver is required")
	}

	topK := c.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Recaller{
		embedder: c.Embedder,
		driver:   c.Driver,
		topK:     topK,
	}, nil
}

// Recall embeds the query and returns the most similar indexed documents.
func (r *Recaller) Recall(ctx context.Context, query string) ([]recall.Result, error) {
	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := r.driver.Query(ctx, embedding, r.topK)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	results := make([]recall.Result, 0, len(matches))
	for _, match := range matches {
		results = append(results, recall.Result{
			ID:    match.ID,
			Text:  match.Text,
			Score: float64(match.Score),
		})
	}

	return results, nil
}

// Close is a no-op; the embedder and driver are owned by the caller.
func (r *Recaller) Close() error {
	return nil
}
