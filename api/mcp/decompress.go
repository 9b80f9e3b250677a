package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var (
	decompressToolName    = "memory_decompress"
	decompressDescription = "Reconstruct the detail behind a summarized memory item. Walks the item's covers down the archive, level by level, and returns the items at the target level. Missing detail is recovered from the external memory service or replaced with placeholders."
)

// DecompressInput represents the input arguments for the decompress tool.
type DecompressInput struct {
	ItemID      string `json:"item_id" jsonschema:"the ID of the archived item to reconstruct"`
	Entity      string `json:"entity,omitempty" jsonschema:"the memory entity the item belongs to (default: the configured entity)"`
	TargetLevel int    `json:"target_level,omitempty" jsonschema:"the level to reconstruct down to (default: 0, the raw entries)"`
}

// DecompressedItem represents a single reconstructed item.
type DecompressedItem struct {
	ID       string `json:"id"`
	Level    int    `json:"level"`
	Text     string `json:"text"`
	Fallback bool   `json:"fallback,omitempty"`
}

// DecompressOutput represents the output of the decompress tool.
type DecompressOutput struct {
	Success      bool               `json:"success"`
	ReachedLevel int                `json:"reached_level"`
	Items        []DecompressedItem `json:"items"`
	Path         []string           `json:"path"`
	UsedFallback bool               `json:"used_fallback"`
}

// handleDecompress processes a decompress request.
func (s *Server) handleDecompress(ctx context.Context, req *mcp.CallToolRequest, input DecompressInput) (*mcp.CallToolResult, DecompressOutput, error) {
	logger := s.config.Logger

	if input.ItemID == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "item_id is required"},
			},
		}, DecompressOutput{}, nil
	}

	logger.Debug("MCP memory decompress request",
		zap.String("item_id", input.ItemID),
		zap.String("entity", input.Entity),
		zap.Int("target_level", input.TargetLevel),
	)

	eng := s.engineFor(input.Entity)
	result := eng.Decompress(ctx, input.ItemID, input.TargetLevel)

	if !result.Success && len(result.Items) == 0 && len(result.Path) == 0 {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("item %s not found in archive", input.ItemID)},
			},
		}, DecompressOutput{}, nil
	}

	items := make([]DecompressedItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, DecompressedItem{
			ID:       item.ID,
			Level:    item.Level,
			Text:     item.Text,
			Fallback: item.Fallback,
		})
	}

	output := DecompressOutput{
		Success:      result.Success,
		ReachedLevel: result.ReachedLevel,
		Items:        items,
		Path:         result.Path,
		UsedFallback: result.UsedFallback,
	}

	return nil, output, nil
}
