package policy

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/archive"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/summarizer"
)

// newTestEngine wires a policy engine to a fresh archive and a mock port.
func newTestEngine(mock *summarizer.Mock) (*Engine, *archive.Store) {
	store := archive.NewStore()
	engine := NewEngine(Config{
		Summarizer: mock,
		Archive:    store,
		Logger:     zap.NewNop(),
	})
	return engine, store
}

// fillRaws appends n raw items of the given text to the ledger.
func fillRaws(ledger *memory.Ledger, n int, text string) []*memory.Item {
	items := make([]*memory.Item, 0, n)
	for i := 0; i < n; i++ {
		item := memory.NewRawItem(text, "user", nil)
		ledger.Append(item)
		items = append(items, item)
	}
	return items
}

var _ = Describe("Policy Engine", func() {
	var (
		ctx    context.Context
		mock   *summarizer.Mock
		engine *Engine
		store  *archive.Store
		ledger *memory.Ledger
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = &summarizer.Mock{Output: "summary text"}
		engine, store = newTestEngine(mock)
	})

	Describe("level-1 creation", func() {
		BeforeEach(func() {
			ledger = memory.NewLedger(memory.LedgerConfig{
				BudgetMax:             100000,
				L1Threshold:           4,
				HierarchicalThreshold: 0.9,
			})
		})

		It("does not fire below threshold plus the reserve", func() {
			fillRaws(ledger, 5, "msg")

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(BeEmpty())
			Expect(mock.SummarizeCalls).To(BeZero())
		})

		It("summarizes the window preceding the two newest raws", func() {
			raws := fillRaws(ledger, 6, "msg")

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(HaveLen(1))
			Expect(actions[0].Kind).To(Equal(ActionCreateL1))

			summary := actions[0].Produced[0]
			Expect(summary.Level).To(Equal(1))
			Expect(summary.Covers).To(Equal([]string{raws[0].ID, raws[1].ID, raws[2].ID, raws[3].ID}))

			// The two newest raws survive.
			Expect(ledger.IndexOf(raws[4].ID)).NotTo(Equal(-1))
			Expect(ledger.IndexOf(raws[5].ID)).NotTo(Equal(-1))
		})

		It("inserts the summary at the position of the first evicted raw", func() {
			fillRaws(ledger, 6, "msg")

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(HaveLen(1))

			items := ledger.Items()
			Expect(items[0].ID).To(Equal(actions[0].Produced[0].ID))
		})

		It("archives the produced summary", func() {
			fillRaws(ledger, 6, "msg")

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(store.Has(actions[0].Produced[0].ID)).To(BeTrue())
		})

		It("works at the minimum threshold of 2", func() {
			ledger.L1Threshold = 2
			raws := fillRaws(ledger, 4, "msg")

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(HaveLen(1))
			Expect(actions[0].Produced[0].Covers).To(Equal([]string{raws[0].ID, raws[1].ID}))
		})

		It("does not re-fire on an unchanged ledger", func() {
			fillRaws(ledger, 6, "msg")

			first := engine.Evaluate(ctx, ledger, "user")
			Expect(first).To(HaveLen(1))

			second := engine.Evaluate(ctx, ledger, "user")
			Expect(second).To(BeEmpty())
		})
	})

	Describe("budget replacement", func() {
		BeforeEach(func() {
			ledger = memory.NewLedger(memory.LedgerConfig{
				BudgetMax:             50,
				L1Threshold:           100,
				HierarchicalThreshold: 0.9,
			})
		})

		It("does not fire at or under budget", func() {
			fillRaws(ledger, 5, strings.Repeat("x", 10))

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(BeEmpty())
		})

		It("replaces the oldest three raws when over budget", func() {
			raws := fillRaws(ledger, 6, strings.Repeat("x", 20))

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(HaveLen(1))
			Expect(actions[0].Kind).To(Equal(ActionBudgetReplace))
			Expect(actions[0].EvictedIDs).To(Equal([]string{raws[0].ID, raws[1].ID, raws[2].ID}))
			Expect(actions[0].BudgetAfter).To(Equal(ledger.ActiveCharTotal()))
		})

		It("reserves the two most recent raws", func() {
			// 4 raws over budget: only 2 eligible beyond the reserve, under
			// the block size of 3.
			fillRaws(ledger, 4, strings.Repeat("x", 30))

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(BeEmpty())
		})

		It("converges under budget across repeated evaluations", func() {
			mock.Output = "s"
			fillRaws(ledger, 12, strings.Repeat("x", 12))

			for i := 0; i < 10 && ledger.ActiveCharTotal() > ledger.BudgetMax; i++ {
				if len(engine.Evaluate(ctx, ledger, "user")) == 0 {
					break
				}
			}

			Expect(ledger.ActiveCharTotal()).To(BeNumerically("<=", ledger.BudgetMax))
		})
	})

	Describe("hierarchical merge", func() {
		// seedSummaries appends n level-1 summaries, each over one raw item.
		seedSummaries := func(n int) []*memory.Item {
			sums := make([]*memory.Item, 0, n)
			for i := 0; i < n; i++ {
				raw := memory.NewRawItem("raw", "user", nil)
				store.Put(raw)
				s, err := memory.NewSummaryItem(1, "sum", []*memory.Item{raw}, nil)
				Expect(err).NotTo(HaveOccurred())
				store.Put(s)
				ledger.Append(s)
				sums = append(sums, s)
			}
			return sums
		}

		BeforeEach(func() {
			ledger = memory.NewLedger(memory.LedgerConfig{
				BudgetMax:             100000,
				L1Threshold:           100,
				HierarchicalThreshold: 0.5,
			})
		})

		It("does not fire at or under the ratio threshold", func() {
			seedSummaries(1)
			ledger.Append(memory.NewRawItem("raw", "user", nil))

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(BeEmpty())
			Expect(mock.MergeCalls).To(BeZero())
		})

		It("merges the two oldest summaries one level up", func() {
			sums := seedSummaries(3)

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(HaveLen(1))
			Expect(actions[0].Kind).To(Equal(ActionMergeUp))

			merged := actions[0].Produced[0]
			Expect(merged.Level).To(Equal(2))
			Expect(merged.Covers).To(Equal([]string{sums[0].ID, sums[1].ID}))

			// Merged summaries lose positional fidelity: appended last.
			items := ledger.Items()
			Expect(items[len(items)-1].ID).To(Equal(merged.ID))
			Expect(store.Has(merged.ID)).To(BeTrue())
		})

		It("prefers the lowest populated summary level", func() {
			sums := seedSummaries(2)
			l2, err := memory.NewSummaryItem(2, "high", []*memory.Item{sums[0]}, nil)
			Expect(err).NotTo(HaveOccurred())
			ledger.Append(l2)

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(HaveLen(1))
			Expect(actions[0].Produced[0].Level).To(Equal(2))
			Expect(actions[0].EvictedIDs).To(Equal([]string{sums[0].ID, sums[1].ID}))
		})

		It("does not fire without a same-level pair", func() {
			sums := seedSummaries(1)
			l2, err := memory.NewSummaryItem(2, "high", []*memory.Item{sums[0]}, nil)
			Expect(err).NotTo(HaveOccurred())
			ledger.Append(l2)

			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).To(BeEmpty())
		})
	})

	Describe("port failure", func() {
		BeforeEach(func() {
			ledger = memory.NewLedger(memory.LedgerConfig{
				BudgetMax:             10,
				L1Threshold:           4,
				HierarchicalThreshold: 0.9,
			})
		})

		It("leaves the ledger untouched when the port errors", func() {
			mock.Err = errors.New("backend down")
			fillRaws(ledger, 8, strings.Repeat("x", 20))

			before := ledger.Items()
			actions := engine.Evaluate(ctx, ledger, "user")

			Expect(actions).To(BeEmpty())
			Expect(ledger.Items()).To(Equal(before))
			Expect(store.Count()).To(BeZero())
		})

		It("recovers once the port works again", func() {
			mock.Err = errors.New("backend down")
			fillRaws(ledger, 8, strings.Repeat("x", 20))
			Expect(engine.Evaluate(ctx, ledger, "user")).To(BeEmpty())

			mock.Err = nil
			actions := engine.Evaluate(ctx, ledger, "user")
			Expect(actions).NotTo(BeEmpty())
		})
	})
})
