// Package ollama implements pkg/summarizer's Summarizer against a local
// Ollama instance's generate API.
package ollama

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
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Summarizer wraps Ollama's generate API.
type Summarizer struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the Ollama summarizer.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the generation model. Defaults to DefaultModel if empty.
	Model string
}

// generateRequest is the request body for Ollama's generate API.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse is the response from Ollama's generate API.
type generateResponse struct {
	Response string `json:"response"`
}

// NewSummarizer creates a summarizer backed by Ollama.
func NewSummarizer(c Config) (*Summarizer, error) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	return &Summarizer{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Summarize produces a first-person summary of the given items.
func (s *Summarizer) Summarize(ctx context.Context, items []*memory.Item, speakerLabel string) (string, error) {
	return s.generate(ctx, summarizer.SummarizePrompt(items, speakerLabel))
}

// Merge produces a shorter synthesis of same-level summaries.
func (s *Summarizer) Merge(ctx context.Context, summaries []*memory.Item, targetLevel int, speakerLabel string) (string, error) {
	return s.generate(ctx, summarizer.MergePrompt(summaries, targetLevel, speakerLabel))
}

func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": 0.3,
			"num_predict": 1024,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", summarizer.ErrPortFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", summarizer.ErrPortFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", summarizer.ErrPortFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama returned status %d: %s", summarizer.ErrPortFailure, resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", summarizer.ErrPortFailure, err)
	}

	text := strings.TrimSpace(genResp.Response)
	if text == "" {
		return "", summarizer.ErrEmptyOutput
	}

	return text, nil
}
