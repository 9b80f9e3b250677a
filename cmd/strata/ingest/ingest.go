// Package ingestcmder provides the ingest command for appending
// conversation entries to an entity's memory via the Strata API.
package ingestcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/api"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/dotdir"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/utils"
)

type ingestCommander struct {
	text    string
	entity  string
	role    string
	speaker string

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const ingestLongDesc string = `Ingest a conversation entry into an entity's memory.

Appends the text as a raw entry via the Strata API. Ingestion may trigger
compaction, in which case the resulting actions are printed.

If --entity is omitted, the entity selected with "strata entity use" is
used.

Examples:
  strata ingest "The user prefers dark mode" --entity alice
  strata ingest "Deploy finished at 14:02" --role assistant
  strata ingest "hello" --speaker "support agent"`

const ingestShortDesc string = "Ingest a conversation entry"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <text>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.resolve(cmd, configDir)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.text = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.entity, "entity", "e", "", "Memory entity to ingest into")
	cmd.Flags().StringVarP(&cmder.role, "role", "r", "user", "Role of the entry (user or assistant)")
	cmd.Flags().StringVar(&cmder.speaker, "speaker", "", "Speaker label attributed to the entry")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Strata API server URL")

	return cmd
}

// resolve fills in the API target and entity from config and dotdir state
// for any flag the caller did not pass explicitly.
func (c *ingestCommander) resolve(cmd *cobra.Command, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cmd.Flags().Changed("api-target") {
		c.apiTarget = cfg.Client.APITarget
	}

	if c.entity == "" {
		state, err := dotdir.NewManager().LoadEntityState(configDir)
		if err != nil {
			return fmt.Errorf("loading entity state: %w", err)
		}
		if state != nil {
			c.entity = state.Entity
			if c.speaker == "" {
				c.speaker = state.Speaker
			}
		}
	}
	if c.entity == "" {
		return fmt.Errorf("no entity given: pass --entity or run `strata entity use <name>`")
	}

	return nil
}

func (c *ingestCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	c.logger.Debug("ingesting entry",
		zap.String("entity", c.entity),
		zap.String("api_target", c.apiTarget),
		zap.Int("chars", len(c.text)),
	)

	reqBody, err := json.Marshal(api.IngestRequest{
		Text:    c.text,
		Role:    c.role,
		Speaker: c.speaker,
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/entities/%s/ingest", c.apiTarget, c.entity)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Strata API at %s: %w", c.apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ingest request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var out api.IngestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("parsing API response: %w", err)
	}

	fmt.Printf("Ingested into %q (%d chars)\n", out.Entity, len(c.text))

	if len(out.Actions) == 0 {
		return nil
	}

	fmt.Printf("\nCompaction triggered %d action(s):\n", len(out.Actions))
	for _, action := range out.Actions {
		fmt.Printf("  [%s] evicted %d item(s), budget now %d chars\n",
			action.Kind, len(action.EvictedIDs), action.BudgetAfter)
		for _, item := range action.Produced {
			fmt.Printf("    L%d %s\n", item.Level, utils.Truncate(item.Text, 60))
		}
	}

	return nil
}
