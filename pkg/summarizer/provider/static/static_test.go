package static

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/summarizer"
)

var _ = Describe("Static Summarizer", func() {
	var (
		ctx context.Context
		s   *Summarizer
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = NewSummarizer(Config{})
	})

	Describe("Summarize", func() {
		It("joins the item texts and names the speaker", func() {
			items := []*memory.Item{
				memory.NewRawItem("first point", "user", nil),
				memory.NewRawItem("second point", "assistant", nil),
			}

			out, err := s.Summarize(ctx, items, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("With alice: first point | second point"))
		})

		It("bounds the output length", func() {
			s = NewSummarizer(Config{MaxChars: 40})
			items := []*memory.Item{
				memory.NewRawItem(strings.Repeat("long text ", 20), "user", nil),
			}

			out, err := s.Summarize(ctx, items, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(len(out)).To(Equal(40))
			Expect(out).To(HaveSuffix("..."))
		})

		It("fails on an empty window", func() {
			_, err := s.Summarize(ctx, nil, "alice")
			Expect(err).To(MatchError(summarizer.ErrPortFailure))
		})
	})

	Describe("Merge", func() {
		It("labels the target level and truncates harder than Summarize", func() {
			s = NewSummarizer(Config{MaxChars: 100})
			raw := memory.NewRawItem("raw", "user", nil)
			s1, err := memory.NewSummaryItem(1, strings.Repeat("summary text ", 10), []*memory.Item{raw}, nil)
			Expect(err).NotTo(HaveOccurred())

			out, err := s.Merge(ctx, []*memory.Item{s1, s1}, 2, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HavePrefix("[L2] With alice:"))
			Expect(len(out)).To(BeNumerically("<=", 50))
		})

		It("fails on an empty input", func() {
			_, err := s.Merge(ctx, nil, 2, "alice")
			Expect(err).To(MatchError(summarizer.ErrPortFailure))
		})
	})
})
