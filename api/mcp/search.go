package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/search"
	"github.com/papercomputeco/strata/pkg/utils"
)

var (
	searchToolName    = "memory_search"
	searchDescription = "Search an entity's archived memory. Scans summary levels from most abstract to most specific and returns the matches from the first level that yields any, falling back to the external memory service when nothing matches locally."
)

// SearchInput represents the input arguments for the memory search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the search query text to find relevant memories"`
	Entity     string `json:"entity,omitempty" jsonschema:"the memory entity to search (default: the configured entity)"`
	MaxLevel   int    `json:"max_level,omitempty" jsonschema:"highest summary level to scan (default: the highest populated level)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of results to return (default: unlimited)"`
}

// SearchResult represents a single memory search result.
type SearchResult struct {
	ID      string  `json:"id"`
	Level   int     `json:"level"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
	Preview string  `json:"preview"`
}

// SearchOutput represents the output of the memory search tool.
type SearchOutput struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	Count        int            `json:"count"`
	Path         []string       `json:"path"`
	UsedFallback bool           `json:"used_fallback"`
}

// handleSearch processes a memory search request.
func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP memory search request",
		zap.String("query", input.Query),
		zap.String("entity", input.Entity),
	)

	eng := s.engineFor(input.Entity)

	maxLevel := -1
	if input.MaxLevel > 0 {
		maxLevel = input.MaxLevel
	}

	out := eng.Search(ctx, input.Query, maxLevel)

	results := out.Results
	if input.MaxResults > 0 && len(results) > input.MaxResults {
		results = results[:input.MaxResults]
	}

	output := SearchOutput{
		Query:        out.Query,
		Results:      buildSearchResults(results),
		Count:        len(results),
		Path:         out.Path,
		UsedFallback: out.UsedFallback,
	}

	return nil, output, nil
}

// buildSearchResults converts engine search results into tool output entries.
func buildSearchResults(results []search.Result) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for _, res := range results {
		out = append(out, SearchResult{
			ID:      res.Item.ID,
			Level:   res.Item.Level,
			Score:   res.Score,
			Source:  res.Source,
			Preview: utils.Truncate(res.Item.Text, 200),
		})
	}
	return out
}
