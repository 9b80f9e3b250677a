package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/engine"
	"github.com/papercomputeco/strata/pkg/policy"
	"github.com/papercomputeco/strata/pkg/search"
)

// IngestRequest is the body for POST /v1/entities/:entity/ingest.
type IngestRequest struct {
	Text    string `json:"text"`
	Role    string `json:"role,omitempty"`
	Speaker string `json:"speaker,omitempty"`
}

// IngestResponse reports the compaction actions an ingestion triggered.
type IngestResponse struct {
	Entity  string          `json:"entity"`
	Actions []policy.Action `json:"actions"`
}

// ContextResponse carries an assembled prompt context.
type ContextResponse struct {
	Entity   string `json:"entity"`
	Context  string `json:"context"`
	MaxChars int    `json:"max_chars"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListEntities returns the entities with a live engine.
func (s *Server) handleListEntities(c *fiber.Ctx) error {
	entities := s.registry.Entities()
	return c.JSON(map[string]any{
		"count":    len(entities),
		"entities": entities,
	})
}

// handleIngest appends a raw entry to an entity's memory and runs compaction.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	entity := c.Params("entity")

	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	eng := s.registry.Get(entity)
	actions, err := eng.Ingest(c.Context(), req.Text, req.Role, req.Speaker)
	if err != nil {
		if errors.Is(err, engine.ErrMalformedInput) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("ingest failed",
			zap.String("entity", entity),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "ingest failed"})
	}

	if actions == nil {
		actions = []policy.Action{}
	}

	return c.JSON(IngestResponse{Entity: entity, Actions: actions})
}

// handleBuildContext assembles a prompt context within a character budget.
// Query parameters:
//   - query (optional): pulls matching archive items to the front
//   - max_chars (optional): the character budget
func (s *Server) handleBuildContext(c *fiber.Ctx) error {
	entity := c.Params("entity")

	maxChars := 0
	if mcStr := c.Query("max_chars"); mcStr != "" {
		parsed, err := strconv.Atoi(mcStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "max_chars must be a positive integer"})
		}
		maxChars = parsed
	}

	eng := s.registry.Get(entity)
	built := eng.BuildContext(c.Context(), c.Query("query"), maxChars)

	if maxChars == 0 {
		maxChars = engine.DefaultContextChars
	}

	return c.JSON(ContextResponse{Entity: entity, Context: built, MaxChars: maxChars})
}

// handleStats returns the entity's memory statistics.
func (s *Server) handleStats(c *fiber.Ctx) error {
	eng := s.registry.Get(c.Params("entity"))
	return c.JSON(eng.Stats())
}

// handleSearch handles GET /v1/entities/:entity/search requests.
// Query parameters:
//   - query (required): the search query text
//   - max_level (optional): the highest archive level to scan
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query parameter is required"})
	}

	maxLevel := -1
	if mlStr := c.Query("max_level"); mlStr != "" {
		parsed, err := strconv.Atoi(mlStr)
		if err != nil || parsed < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "max_level must be a non-negative integer"})
		}
		maxLevel = parsed
	}

	eng := s.registry.Get(c.Params("entity"))
	return c.JSON(eng.Search(c.Context(), query, maxLevel))
}

// handleAdvancedSearch handles POST /v1/entities/:entity/search/advanced.
// The body is a search.Options JSON document.
func (s *Server) handleAdvancedSearch(c *fiber.Ctx) error {
	var opts search.Options
	if err := c.BodyParser(&opts); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if opts.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query is required"})
	}

	eng := s.registry.Get(c.Params("entity"))
	return c.JSON(eng.AdvancedSearch(c.Context(), opts))
}

// handleDecompress reconstructs an archived item down to a target level.
// Query parameters:
//   - target_level (optional, default 0): the level to reconstruct down to
func (s *Server) handleDecompress(c *fiber.Ctx) error {
	itemID := c.Params("id")
	if itemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	targetLevel := 0
	if tlStr := c.Query("target_level"); tlStr != "" {
		parsed, err := strconv.Atoi(tlStr)
		if err != nil || parsed < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "target_level must be a non-negative integer"})
		}
		targetLevel = parsed
	}

	eng := s.registry.Get(c.Params("entity"))
	result := eng.Decompress(c.Context(), itemID, targetLevel)
	if !result.Success && len(result.Items) == 0 && len(result.Path) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "item not found"})
	}

	return c.JSON(result)
}

// handleExport returns the entity's full serialized state.
func (s *Server) handleExport(c *fiber.Ctx) error {
	eng := s.registry.Get(c.Params("entity"))

	data, err := eng.ExportState()
	if err != nil {
		s.logger.Error("export failed",
			zap.String("entity", eng.Entity()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "export failed"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

// handleImport replaces the entity's state with an uploaded snapshot.
func (s *Server) handleImport(c *fiber.Ctx) error {
	eng := s.registry.Get(c.Params("entity"))

	if err := eng.ImportState(c.Body()); err != nil {
		if errors.Is(err, engine.ErrMalformedInput) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("import failed",
			zap.String("entity", eng.Entity()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "import failed"})
	}

	return c.JSON(map[string]string{"status": "imported"})
}
