package summarizer

import (
	"context"
	"sync"

	"github.com/papercomputeco/strata/pkg/memory"
)

// Mock is a test double for the Summarizer interface. It records calls and
// returns canned output, or Err when set.
type Mock struct {
	mu sync.Mutex

	// Output is returned by both Summarize and Merge when Err is nil.
	Output string

	// Err, when non-nil, is returned by both calls.
	Err error

	// SummarizeCalls and MergeCalls count invocations.
	SummarizeCalls int
	MergeCalls     int
}

// Summarize records the call and returns the canned output.
func (m *Mock) Summarize(_ context.Context, _ []*memory.Item, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SummarizeCalls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Output, nil
}

// Merge records the call and returns the canned output.
func (m *Mock) Merge(_ context.Context, _ []*memory.Item, _ int, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.MergeCalls++
	if m.Err != nil {
		return "", m.Err
	}
	return m.Output, nil
}
