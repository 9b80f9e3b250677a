// Package anthropic implements pkg/summarizer's Summarizer against the
// Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/summarizer"
)

const (
	// DefaultModel is the default generation model.
	DefaultModel = "claude-haiku-4-5-20251001"

	messagesURL = "https://api.anthropic.com/v1/messages"
	apiVersion  = "2023-06-01"
)

// Summarizer calls the Anthropic Messages API directly.
type Summarizer struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the Anthropic summarizer.
type Config struct {
	// APIKey authenticates against the Messages API. Required.
	APIKey string

	// Model is the generation model. Defaults to DefaultModel if empty.
	Model string
}

// NewSummarizer creates a summarizer backed by the Anthropic API.
func NewSummarizer(c Config) (*Summarizer, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("anthropic provider requires an API key")
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	return &Summarizer{
		apiKey: c.APIKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
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
	reqBody := map[string]any{
		"model":       s.model,
		"max_tokens":  1024,
		"temperature": 0.3,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", summarizer.ErrPortFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", messagesURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", summarizer.ErrPortFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", summarizer.ErrPortFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", summarizer.ErrPortFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: anthropic returned status %d: %s", summarizer.ErrPortFailure, resp.StatusCode, string(respBody))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", summarizer.ErrPortFailure, err)
	}

	if len(result.Content) == 0 || strings.TrimSpace(result.Content[0].Text) == "" {
		return "", summarizer.ErrEmptyOutput
	}

	return strings.TrimSpace(result.Content[0].Text), nil
}
