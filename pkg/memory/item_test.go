package memory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Item", func() {
	Describe("NewRawItem", func() {
		It("creates a level-0 raw item", func() {
			item := NewRawItem("hello world", "user", []string{"hello", "world"})

			Expect(item.ID).NotTo(BeEmpty())
			Expect(item.Kind).To(Equal(KindRaw))
			Expect(item.Level).To(Equal(0))
			Expect(item.Text).To(Equal("hello world"))
			Expect(item.CharCount).To(Equal(len("hello world")))
			Expect(item.Role).To(Equal("user"))
			Expect(item.Covers).To(BeEmpty())
			Expect(item.IsRaw()).To(BeTrue())
			Expect(item.IsSummary()).To(BeFalse())
		})

		It("assigns distinct IDs", func() {
			a := NewRawItem("a", "user", nil)
			b := NewRawItem("b", "user", nil)
			Expect(a.ID).NotTo(Equal(b.ID))
		})
	})

	Describe("NewSummaryItem", func() {
		var raws []*Item

		BeforeEach(func() {
			raws = []*Item{
				NewRawItem("first", "user", nil),
				NewRawItem("second", "assistant", nil),
			}
		})

		It("creates a level-1 summary covering the given items in order", func() {
			summary, err := NewSummaryItem(1, "a summary", raws, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(summary.Kind).To(Equal(KindSummary))
			Expect(summary.Level).To(Equal(1))
			Expect(summary.Covers).To(Equal([]string{raws[0].ID, raws[1].ID}))
			Expect(summary.IsSummary()).To(BeTrue())
		})

		It("rejects level 0", func() {
			_, err := NewSummaryItem(0, "text", raws, nil)
			Expect(err).To(HaveOccurred())
		})

		It("rejects empty covers", func() {
			_, err := NewSummaryItem(1, "text", nil, nil)
			Expect(err).To(HaveOccurred())
		})

		It("rejects covered items that are not exactly one level below", func() {
			l1, err := NewSummaryItem(1, "s1", raws, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = NewSummaryItem(3, "too far up", []*Item{l1}, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("deep copies topics and covers", func() {
			raws := []*Item{NewRawItem("first", "user", nil)}
			summary, err := NewSummaryItem(1, "summary", raws, []string{"topic"})
			Expect(err).NotTo(HaveOccurred())

			dup := summary.Clone()
			dup.Topics[0] = "changed"
			dup.Covers[0] = "changed"

			Expect(summary.Topics[0]).To(Equal("topic"))
			Expect(summary.Covers[0]).To(Equal(raws[0].ID))
		})

		It("returns nil for a nil item", func() {
			var item *Item
			Expect(item.Clone()).To(BeNil())
		})
	})
})

var _ = Describe("ExtractTopics", func() {
	It("lowercases and strips punctuation", func() {
		topics := ExtractTopics("Deploy! Finished, (quickly).")
		Expect(topics).To(Equal([]string{"deploy", "finished", "quickly"}))
	})

	It("drops stopwords and short words", func() {
		topics := ExtractTopics("the database is on a new host")
		Expect(topics).To(Equal([]string{"database", "new", "host"}))
	})

	It("deduplicates and caps the list", func() {
		topics := ExtractTopics("alpha alpha beta gamma delta epsilon zeta eta theta iota kappa")
		Expect(topics).To(HaveLen(8))
		Expect(topics[0]).To(Equal("alpha"))
		Expect(topics[1]).To(Equal("beta"))
	})

	It("returns nothing for empty text", func() {
		Expect(ExtractTopics("")).To(BeEmpty())
	})
})
