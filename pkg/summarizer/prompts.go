package summarizer

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/strata/pkg/memory"
)

// SummarizePrompt builds the prompt for first-level summarization of raw
// ledger entries.
func SummarizePrompt(items []*memory.Item, speakerLabel string) string {
	var b strings.Builder
	for _, item := range items {
		role := item.Role
		if role == "" {
			role = "entry"
		}
		fmt.Fprintf(&b, "[%s] %s\n\n", strings.ToUpper(role), item.Text)
	}

	return fmt.Sprintf(`You are the memory of a long-running conversation with %s.
Condense the following exchange into a single short paragraph, written in
first person, referring to %s by name. Preserve decisions, facts, and open
threads; drop filler and pleasantries.

EXCHANGE:
%s
Return only the paragraph, no preamble.`, speakerLabel, speakerLabel, b.String())
}

// MergePrompt builds the prompt for merging same-level summaries into one
// higher-level synthesis.
func MergePrompt(summaries []*memory.Item, targetLevel int, speakerLabel string) string {
	var b strings.Builder
	for i, item := range summaries {
		fmt.Fprintf(&b, "SUMMARY %d (level %d):\n%s\n\n", i+1, item.Level, item.Text)
	}

	return fmt.Sprintf(`You are the memory of a long-running conversation with %s.
Merge the following level-%d summaries into one shorter level-%d synthesis,
written in first person, referring to %s by name. Keep every durable fact
and decision; collapse overlap.

%s
Return only the synthesis, no preamble.`, speakerLabel, targetLevel-1, targetLevel, speakerLabel, b.String())
}
