package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/engine"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/search"
	"github.com/papercomputeco/strata/pkg/summarizer"
)

func newTestServer() *Server {
	registry := engine.NewRegistry(func(entity string) *engine.Engine {
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

	return NewServer(Config{ListenAddr: ":0"}, registry, zap.NewNop())
}

func ingestBody(text string) io.Reader {
	data, err := json.Marshal(IngestRequest{Text: text, Role: "user"})
	Expect(err).NotTo(HaveOccurred())
	return bytes.NewReader(data)
}

var _ = Describe("API handlers", func() {
	var server *Server

	BeforeEach(func() {
		server = newTestServer()
	})

	Describe("GET /ping", func() {
		It("returns pong", func() {
			req, err := http.NewRequest(http.MethodGet, "/ping", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		})
	})

	Describe("POST /v1/entities/:entity/ingest", func() {
		It("ingests text and returns an empty action list", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/entities/alice/ingest", ingestBody("hello there"))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out IngestResponse
			Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
			Expect(out.Entity).To(Equal("alice"))
			Expect(out.Actions).NotTo(BeNil())
			Expect(out.Actions).To(BeEmpty())
		})

		It("reports compaction actions once thresholds are crossed", func() {
			var last IngestResponse
			for i := 0; i < 4; i++ {
				req, err := http.NewRequest(http.MethodPost, "/v1/entities/alice/ingest", ingestBody(fmt.Sprintf("message %d", i)))
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Content-Type", "application/json")

				resp, err := server.app.Test(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
				Expect(json.NewDecoder(resp.Body).Decode(&last)).To(Succeed())
			}

			Expect(last.Actions).To(HaveLen(1))
		})

		It("rejects empty text with 400", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/entities/alice/ingest", ingestBody("   "))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("rejects an unparsable body with 400", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/entities/alice/ingest", strings.NewReader("{nope"))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("GET /v1/entities", func() {
		It("lists entities with live engines", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/entities/alice/ingest", ingestBody("hello"))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			_, err = server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())

			listReq, err := http.NewRequest(http.MethodGet, "/v1/entities", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(listReq)
			Expect(err).NotTo(HaveOccurred())

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("alice"))
		})
	})

	Describe("GET /v1/entities/:entity/context", func() {
		It("assembles the recent conversation", func() {
			for _, text := range []string{"alpha message", "beta message"} {
				req, err := http.NewRequest(http.MethodPost, "/v1/entities/alice/ingest", ingestBody(text))
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Content-Type", "application/json")
				_, err = server.app.Test(req)
				Expect(err).NotTo(HaveOccurred())
			}

			req, err := http.NewRequest(http.MethodGet, "/v1/entities/alice/context", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out ContextResponse
			Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
			Expect(out.Context).To(ContainSubstring("beta message"))
			Expect(out.MaxChars).To(Equal(engine.DefaultContextChars))
		})

		It("rejects a non-positive max_chars", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/entities/alice/context?max_chars=0", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("GET /v1/entities/:entity/search", func() {
		It("requires a query", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/entities/alice/search", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		It("finds ingested items", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/entities/alice/ingest", ingestBody("the deploy finished"))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			_, err = server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())

			searchReq, err := http.NewRequest(http.MethodGet, "/v1/entities/alice/search?query=deploy", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(searchReq)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var out search.Output
			Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
			Expect(out.Count).To(Equal(1))
		})
	})

	Describe("POST /v1/entities/:entity/search/advanced", func() {
		It("requires a query in the body", func() {
			data, err := json.Marshal(search.Options{})
			Expect(err).NotTo(HaveOccurred())

			req, err := http.NewRequest(http.MethodPost, "/v1/entities/alice/search/advanced", bytes.NewReader(data))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Describe("GET /v1/entities/:entity/items/:id/decompress", func() {
		It("returns 404 for an unknown item", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/entities/alice/items/no-such-id/decompress", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		})
	})

	Describe("export and import", func() {
		It("round-trips entity state across entities", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/entities/alice/ingest", ingestBody("remember this"))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			_, err = server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())

			exportReq, err := http.NewRequest(http.MethodGet, "/v1/entities/alice/export", nil)
			Expect(err).NotTo(HaveOccurred())

			exportResp, err := server.app.Test(exportReq)
			Expect(err).NotTo(HaveOccurred())
			Expect(exportResp.StatusCode).To(Equal(fiber.StatusOK))

			state, err := io.ReadAll(exportResp.Body)
			Expect(err).NotTo(HaveOccurred())

			importReq, err := http.NewRequest(http.MethodPost, "/v1/entities/bob/import", bytes.NewReader(state))
			Expect(err).NotTo(HaveOccurred())
			importReq.Header.Set("Content-Type", "application/json")

			importResp, err := server.app.Test(importReq)
			Expect(err).NotTo(HaveOccurred())
			Expect(importResp.StatusCode).To(Equal(fiber.StatusOK))

			searchReq, err := http.NewRequest(http.MethodGet, "/v1/entities/bob/search?query=remember", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(searchReq)
			Expect(err).NotTo(HaveOccurred())

			var out search.Output
			Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
			Expect(out.Count).To(Equal(1))
		})

		It("rejects a malformed snapshot with 400", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/entities/alice/import", strings.NewReader("{not a snapshot"))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})
})
