package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/engine"
	"github.com/papercomputeco/strata/pkg/persistence"
	"github.com/papercomputeco/strata/pkg/persistence/nop"
)

var _ = Describe("Sink", func() {
	It("accepts writes without storing them", func() {
		s := nop.NewSink()
		Expect(s.Write(context.Background(), engine.Snapshot{Entity: "alice"})).To(Succeed())

		_, err := s.Latest(context.Background(), "alice")
		Expect(err).To(MatchError(persistence.ErrNoSnapshot))
	})

	It("reports zero versions", func() {
		s := nop.NewSink()
		Expect(s.Write(context.Background(), engine.Snapshot{Entity: "alice"})).To(Succeed())

		n, err := s.Versions(context.Background(), "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("closes successfully", func() {
		Expect(nop.NewSink().Close()).To(Succeed())
	})
})
