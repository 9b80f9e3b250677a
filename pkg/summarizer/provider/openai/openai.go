// Package openai implements pkg/summarizer's Summarizer using the official
// openai-go SDK. Setting a base URL makes it work against any
// OpenAI-compatible API.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/summarizer"
)

// DefaultModel is the default generation model.
const DefaultModel = "gpt-4o-mini"

// Summarizer wraps the OpenAI chat completions API.
type Summarizer struct {
	client openai.Client
	model  string
}

// Config holds configuration for the OpenAI summarizer.
type Config struct {
	// APIKey authenticates the client. Required.
	APIKey string

	// BaseURL overrides the API endpoint for OpenAI-compatible services.
	BaseURL string

	// Model is the generation model. Defaults to DefaultModel if empty.
	Model string
}

// NewSummarizer creates a summarizer backed by the OpenAI API.
func NewSummarizer(c Config) (*Summarizer, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("openai provider requires an API key")
	}

	opts := []option.RequestOption{option.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	return &Summarizer{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Summarize produces a first-person summary of the given items.
func (s *Summarizer) Summarize(ctx context.Context, items []*memory.Item, speakerLabel string) (string, error) {
	return s.complete(ctx, summarizer.SummarizePrompt(items, speakerLabel))
}

// Merge produces a shorter synthesis of same-level summaries.
func (s *Summarizer) Merge(ctx context.Context, summaries []*memory.Item, targetLevel int, speakerLabel string) (string, error) {
	return s.complete(ctx, summarizer.MergePrompt(summaries, targetLevel, speakerLabel))
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai completion: %v", summarizer.ErrPortFailure, err)
	}

	if len(resp.Choices) == 0 {
		return "", summarizer.ErrEmptyOutput
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", summarizer.ErrEmptyOutput
	}

	return text, nil
}
