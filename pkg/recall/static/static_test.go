package static

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/recall"
)

var _ = Describe("Static Recaller", func() {
	var (
		ctx context.Context
		r   *Recaller
	)

	BeforeEach(func() {
		ctx = context.Background()
		r = NewRecaller([]recall.Result{
			{ID: "1", Text: "the deploy finished at noon", Score: 0.9},
			{ID: "2", Text: "lunch plans were discussed", Score: 0.4},
		})
	})

	It("matches by substring, case-insensitively", func() {
		results, err := r.Recall(ctx, "DEPLOY")
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].ID).To(Equal("1"))
	})

	It("returns nothing for a miss", func() {
		results, err := r.Recall(ctx, "kubernetes")
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("recalls entries added after construction", func() {
		r.Add(recall.Result{ID: "3", Text: "kubernetes upgrade scheduled", Score: 0.7})

		results, err := r.Recall(ctx, "kubernetes")
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
	})

	It("does not alias the seed slice", func() {
		seed := []recall.Result{{ID: "x", Text: "seeded", Score: 1}}
		r := NewRecaller(seed)
		seed[0].Text = "mutated"

		results, err := r.Recall(ctx, "seeded")
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(1))
	})
})
