package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/api/mcp"
	"github.com/papercomputeco/strata/pkg/engine"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/summarizer"
)

func newTestRegistry() *engine.Registry {
	return engine.NewRegistry(func(entity string) *engine.Engine {
		return engine.NewEngine(engine.Config{
			Entity:  entity,
			Speaker: "user",
			Ledger: memory.LedgerConfig{
				BudgetMax:             100000,
				L1Threshold:           2,
				HierarchicalThreshold: 0.9,
			},
			Summarizer: &summarizer.Mock{Output: "condensed"},
			Logger:     zap.NewNop(),
		})
	})
}

var _ = Describe("MCP Server", func() {
	var (
		server   *mcp.Server
		registry *engine.Registry
	)

	BeforeEach(func() {
		registry = newTestRegistry()

		var err error
		server, err = mcp.NewServer(mcp.Config{
			Registry:      registry,
			DefaultEntity: "alice",
			Logger:        zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the engine registry is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Logger: zap.NewNop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("engine registry is required"))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Registry: registry,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("creates a server with valid config", func() {
			Expect(server).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			handler := server.Handler()
			Expect(handler).NotTo(BeNil())
		})

		It("skips dependency checks in noop mode", func() {
			noop, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(noop).NotTo(BeNil())
		})
	})
})
