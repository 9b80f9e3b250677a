package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent strata configuration stored as config.toml
// in the .strata/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Engine      EngineConfig      `toml:"engine"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	Summarizer  SummarizerConfig  `toml:"summarizer"`
	Recall      RecallConfig      `toml:"recall"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Persistence PersistenceConfig `toml:"persistence"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// EngineConfig holds the compaction tunables shared by every entity.
type EngineConfig struct {
	BudgetMax             int     `toml:"budget_max,omitempty"`
	L1Threshold           int     `toml:"l1_threshold,omitempty"`
	HierarchicalThreshold float64 `toml:"hierarchical_threshold,omitempty"`
	Speaker               string  `toml:"speaker,omitempty"`
	MaxIngestChars        int     `toml:"max_ingest_chars,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to the running
// API server (e.g. strata stats, strata search). Values are full URLs
// (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// SummarizerConfig holds summarization backend settings.
type SummarizerConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// RecallConfig holds external memory service settings used by search and
// decompression fallback.
type RecallConfig struct {
	Provider string `toml:"provider,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// PersistenceConfig holds snapshot persistence settings.
type PersistenceConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`

	// SnapshotSchedule is a cron expression for periodic full snapshots,
	// e.g. "@every 5m". Empty disables the schedule.
	SnapshotSchedule string `toml:"snapshot_schedule,omitempty"`
}

// EventStreamConfig holds compaction event publishing settings.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"engine.budget_max": {
		get: func(c *Config) string { return strconv.Itoa(c.Engine.BudgetMax) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for engine.budget_max: %w", err)
			}
			c.Engine.BudgetMax = n
			return nil
		},
	},
	"engine.l1_threshold": {
		get: func(c *Config) string { return strconv.Itoa(c.Engine.L1Threshold) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for engine.l1_threshold: %w", err)
			}
			c.Engine.L1Threshold = n
			return nil
		},
	},
	"engine.hierarchical_threshold": {
		get: func(c *Config) string {
			return strconv.FormatFloat(c.Engine.HierarchicalThreshold, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for engine.hierarchical_threshold: %w", err)
			}
			c.Engine.HierarchicalThreshold = f
			return nil
		},
	},
	"engine.max_ingest_chars": {
		get: func(c *Config) string { return strconv.Itoa(c.Engine.MaxIngestChars) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for engine.max_ingest_chars: %w", err)
			}
			c.Engine.MaxIngestChars = n
			return nil
		},
	},
	"engine.speaker": {
		get: func(c *Config) string { return c.Engine.Speaker },
		set: func(c *Config, v string) error { c.Engine.Speaker = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"summarizer.provider": {
		get: func(c *Config) string { return c.Summarizer.Provider },
		set: func(c *Config, v string) error { c.Summarizer.Provider = v; return nil },
	},
	"summarizer.target": {
		get: func(c *Config) string { return c.Summarizer.Target },
		set: func(c *Config, v string) error { c.Summarizer.Target = v; return nil },
	},
	"summarizer.model": {
		get: func(c *Config) string { return c.Summarizer.Model },
		set: func(c *Config, v string) error { c.Summarizer.Model = v; return nil },
	},
	"recall.provider": {
		get: func(c *Config) string { return c.Recall.Provider },
		set: func(c *Config, v string) error { c.Recall.Provider = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"persistence.provider": {
		get: func(c *Config) string { return c.Persistence.Provider },
		set: func(c *Config, v string) error { c.Persistence.Provider = v; return nil },
	},
	"persistence.target": {
		get: func(c *Config) string { return c.Persistence.Target },
		set: func(c *Config, v string) error { c.Persistence.Target = v; return nil },
	},
	"persistence.snapshot_schedule": {
		get: func(c *Config) string { return c.Persistence.SnapshotSchedule },
		set: func(c *Config, v string) error { c.Persistence.SnapshotSchedule = v; return nil },
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.Brokers = splitNonEmpty(v)
			return nil
		},
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}

// splitNonEmpty splits a comma-separated list, dropping empty elements.
func splitNonEmpty(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
