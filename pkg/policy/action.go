package policy

import "github.com/papercomputeco/strata/pkg/memory"

// ActionKind names the compaction rule that produced an action.
type ActionKind string

const (
	// ActionNone marks an evaluation pass in which no rule fired.
	ActionNone ActionKind = "none"

	// ActionCreateL1 is a level-1 summarization of the oldest raw window.
	ActionCreateL1 ActionKind = "create_l1"

	// ActionBudgetReplace is a budget-driven replacement of old raw items.
	ActionBudgetReplace ActionKind = "budget_replace"

	// ActionMergeUp is a merge of two same-level summaries one level up.
	ActionMergeUp ActionKind = "merge_up"
)

// Action is the caller-facing record of one committed compaction rule.
//
// Evaluate returns one Action per fired rule so callers observe every
// mutation that occurred in a pass, not just the last one.
type Action struct {
	// Kind names the rule that fired.
	Kind ActionKind `json:"kind"`

	// Produced lists the new items the rule created.
	Produced []*memory.Item `json:"produced"`

	// EvictedIDs lists the IDs removed from the active ledger.
	EvictedIDs []string `json:"evicted_ids"`

	// BudgetAfter is the active char total after the action committed.
	BudgetAfter int `json:"budget_after"`
}
