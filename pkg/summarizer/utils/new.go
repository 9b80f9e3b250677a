// Package summarizerutils is the summarizer utility package
package summarizerutils

import (
	"fmt"

	"github.com/papercomputeco/strata/pkg/summarizer"
	"github.com/papercomputeco/strata/pkg/summarizer/provider/anthropic"
	"github.com/papercomputeco/strata/pkg/summarizer/provider/ollama"
	"github.com/papercomputeco/strata/pkg/summarizer/provider/openai"
	"github.com/papercomputeco/strata/pkg/summarizer/provider/static"
)

type NewSummarizerOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
}

func NewSummarizer(o *NewSummarizerOpts) (summarizer.Summarizer, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewSummarizer(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "anthropic":
		return anthropic.NewSummarizer(anthropic.Config{
			APIKey: o.APIKey,
			Model:  o.Model,
		})
	case "openai":
		return openai.NewSummarizer(openai.Config{
			APIKey:  o.APIKey,
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "static":
		return static.NewSummarizer(static.Config{}), nil
	default:
		return nil, fmt.Errorf("unsupported summarizer provider: %s", o.ProviderType)
	}
}
