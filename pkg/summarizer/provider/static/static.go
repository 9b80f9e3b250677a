// Package static implements a deterministic, extractive Summarizer that
// needs no external backend. It is the dry-run and local-dev provider: the
// "summary" is a bounded extract of the covered texts, so compaction
// mechanics can run end to end without an LLM.
package static

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/summarizer"
)

// DefaultMaxChars bounds the produced summary length.
const DefaultMaxChars = 400

// Summarizer is the extractive provider.
type Summarizer struct {
	maxChars int
}

// Config holds configuration for the static provider.
type Config struct {
	// MaxChars bounds summary length. Defaults to DefaultMaxChars if zero.
	MaxChars int
}

// NewSummarizer creates a static extractive summarizer.
func NewSummarizer(c Config) *Summarizer {
	maxChars := c.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Summarizer{maxChars: maxChars}
}

// Summarize joins the item texts and truncates to the configured bound.
func (s *Summarizer) Summarize(_ context.Context, items []*memory.Item, speakerLabel string) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("%w: no items to summarize", summarizer.ErrPortFailure)
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, strings.TrimSpace(item.Text))
	}

	joined := fmt.Sprintf("With %s: %s", speakerLabel, strings.Join(parts, " | "))
	return truncate(joined, s.maxChars), nil
}

// Merge joins the summary texts and truncates harder: merged output should
// be shorter than its inputs.
func (s *Summarizer) Merge(_ context.Context, summaries []*memory.Item, targetLevel int, speakerLabel string) (string, error) {
	if len(summaries) == 0 {
		return "", fmt.Errorf("%w: no summaries to merge", summarizer.ErrPortFailure)
	}

	parts := make([]string, 0, len(summaries))
	for _, item := range summaries {
		parts = append(parts, strings.TrimSpace(item.Text))
	}

	joined := fmt.Sprintf("[L%d] With %s: %s", targetLevel, speakerLabel, strings.Join(parts, " / "))
	return truncate(joined, s.maxChars/2), nil
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max-3] + "..."
}
