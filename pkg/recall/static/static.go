// Package static provides a deterministic in-process Recaller for local
// development and tests. It recalls from a fixed seed corpus by substring
// match. Production backends substitute real vector search via the same
// interface.
package static

import (
	"context"
	"strings"
	"sync"

	"github.com/papercomputeco/strata/pkg/recall"
)

// Recaller implements recall.Recaller over an in-memory seed corpus.
type Recaller struct {
	mu      sync.RWMutex
	entries []recall.Result
}

// NewRecaller creates a static recaller with the given seed entries.
func NewRecaller(seed []recall.Result) *Recaller {
	entries := make([]recall.Result, len(seed))
	copy(entries, seed)
	return &Recaller{entries: entries}
}

// Add appends an entry to the corpus.
func (r *Recaller) Add(entry recall.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// Recall returns seed entries whose text contains the query,
// case-insensitively, in corpus order.
func (r *Recaller) Recall(_ context.Context, query string) ([]recall.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(query)
	var results []recall.Result
	for _, entry := range r.entries {
		if strings.Contains(strings.ToLower(entry.Text), needle) {
			results = append(results, entry)
		}
	}
	return results, nil
}

// Close is a no-op for the static recaller.
func (r *Recaller) Close() error {
	return nil
}
