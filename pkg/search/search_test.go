package search

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/archive"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/recall"
	staticrecall "github.com/papercomputeco/strata/pkg/recall/static"
)

func summaryOf(level int, text string, covered ...*memory.Item) *memory.Item {
	item, err := memory.NewSummaryItem(level, text, covered, memory.ExtractTopics(text))
	Expect(err).NotTo(HaveOccurred())
	return item
}

var _ = Describe("Search Engine", func() {
	var (
		ctx    context.Context
		store  *archive.Store
		engine *Engine
	)

	newRaw := func(text string) *memory.Item {
		item := memory.NewRawItem(text, "user", memory.ExtractTopics(text))
		store.Put(item)
		return item
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = archive.NewStore()
		engine = NewEngine(Config{
			Archive: store,
			Logger:  zap.NewNop(),
		})
	})

	Describe("Search", func() {
		It("prefers the highest level that matches", func() {
			raw := newRaw("the database migration failed")
			s1 := summaryOf(1, "database troubles discussed", raw)
			s2 := summaryOf(2, "infrastructure week recap", s1)
			store.Put(s1)
			store.Put(s2)

			out := engine.Search(ctx, "database", -1)

			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].Item.ID).To(Equal(s1.ID))
			Expect(out.Results[0].Source).To(Equal(SourceArchive))
			Expect(out.Path).To(Equal([]string{"L1: 1 result"}))
		})

		It("descends to lower levels when higher ones miss", func() {
			raw := newRaw("the database migration failed")
			s1 := summaryOf(1, "unrelated recap", raw)
			store.Put(s1)

			out := engine.Search(ctx, "migration", -1)

			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].Item.ID).To(Equal(raw.ID))
			Expect(out.Path).To(Equal([]string{"L0: 1 result"}))
		})

		It("pluralizes the path entry", func() {
			newRaw("deploy one finished")
			newRaw("deploy two finished")

			out := engine.Search(ctx, "deploy", -1)
			Expect(out.Path).To(Equal([]string{"L0: 2 results"}))
		})

		It("respects an explicit max level", func() {
			raw := newRaw("the database migration failed")
			s1 := summaryOf(1, "database troubles discussed", raw)
			store.Put(s1)

			out := engine.Search(ctx, "database", 0)
			Expect(out.Results[0].Item.ID).To(Equal(raw.ID))
		})

		It("matches case-insensitively against text and topics", func() {
			newRaw("Deploy FINISHED at noon")

			out := engine.Search(ctx, "deploy", -1)
			Expect(out.Count).To(Equal(1))
		})

		It("ranks authoritative items first", func() {
			plain := newRaw("deploy log entry plain")
			trusted := newRaw("deploy log entry trusted")
			trusted.Quality = memory.Quality{Authority: 0.9, Feedback: 0.9}
			_ = plain

			out := engine.Search(ctx, "deploy", -1)
			Expect(out.Count).To(Equal(2))
			Expect(out.Results[0].Item.ID).To(Equal(trusted.ID))
		})

		It("returns empty output with no fallback configured", func() {
			out := engine.Search(ctx, "nothing matches", -1)

			Expect(out.Count).To(BeZero())
			Expect(out.UsedFallback).To(BeFalse())
			Expect(out.Path).To(BeEmpty())
		})

		It("falls back to the external memory service", func() {
			engine = NewEngine(Config{
				Archive: store,
				Recaller: staticrecall.NewRecaller([]recall.Result{
					{ID: "ext-1", Text: "externally remembered deploy", Score: 0.8},
				}),
				Logger: zap.NewNop(),
			})

			out := engine.Search(ctx, "deploy", -1)

			Expect(out.Count).To(Equal(1))
			Expect(out.UsedFallback).To(BeTrue())
			Expect(out.Results[0].Source).To(Equal(SourceFallback))
			Expect(out.Results[0].Item.Fallback).To(BeTrue())
			Expect(out.Path).To(Equal([]string{"fallback: 1 result"}))
		})
	})

	Describe("AdvancedSearch", func() {
		BeforeEach(func() {
			raw1 := newRaw("deploy started on the staging cluster")
			raw2 := newRaw("deploy finished on the staging cluster")
			s1 := summaryOf(1, "staging deploy recap", raw1, raw2)
			store.Put(s1)
		})

		It("collects matches across every allowed level", func() {
			out := engine.AdvancedSearch(ctx, Options{Query: "deploy"})

			Expect(out.Count).To(Equal(3))
			Expect(out.Path).To(Equal([]string{"L1: 1 result", "L0: 2 results"}))
		})

		It("restricts to an explicit level set", func() {
			out := engine.AdvancedSearch(ctx, Options{Query: "deploy", Levels: []int{1}})

			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].Item.Level).To(Equal(1))
		})

		It("caps results at MaxResults after ranking", func() {
			out := engine.AdvancedSearch(ctx, Options{Query: "deploy", MaxResults: 2})
			Expect(out.Count).To(Equal(2))
		})

		It("drops results below MinScore", func() {
			out := engine.AdvancedSearch(ctx, Options{Query: "deploy", MinScore: 99})
			Expect(out.Count).To(BeZero())
		})

		It("only queries fallback when asked", func() {
			engine = NewEngine(Config{
				Archive: store,
				Recaller: staticrecall.NewRecaller([]recall.Result{
					{ID: "ext-1", Text: "migrated the billing service", Score: 0.7},
				}),
				Logger: zap.NewNop(),
			})

			without := engine.AdvancedSearch(ctx, Options{Query: "billing"})
			Expect(without.Count).To(BeZero())

			with := engine.AdvancedSearch(ctx, Options{Query: "billing", IncludeFallback: true})
			Expect(with.Count).To(Equal(1))
			Expect(with.UsedFallback).To(BeTrue())
		})
	})
})
