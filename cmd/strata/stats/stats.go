// Package statscmder provides the stats command for inspecting an
// entity's memory state via the Strata API.
package statscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/dotdir"
	"github.com/papercomputeco/strata/pkg/engine"
	"github.com/papercomputeco/strata/pkg/logger"
)

type statsCommander struct {
	entity string

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const statsLongDesc string = `Show memory statistics for an entity.

Reports active item counts per compaction level, character budget usage,
the summary ratio, and archive totals.

If --entity is omitted, the entity selected with "strata entity use" is
used.

Example:
  strata stats --entity alice`

const statsShortDesc string = "Show memory statistics for an entity"

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.resolve(cmd, configDir)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.entity, "entity", "e", "", "Memory entity to inspect")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Strata API server URL")

	return cmd
}

func (c *statsCommander) resolve(cmd *cobra.Command, configDir string) error {
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
		}
	}
	if c.entity == "" {
		return fmt.Errorf("no entity given: pass --entity or run `strata entity use <name>`")
	}

	return nil
}

func (c *statsCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	stats, err := c.fetchStats()
	if err != nil {
		return err
	}

	fmt.Printf("Entity: %s\n\n", stats.Entity)

	fmt.Printf("Active memory: %d item(s), %d chars (%.1f%% of %d budget)\n",
		stats.ActiveItems, stats.ActiveChars, stats.BudgetUsedPercent, stats.BudgetMax)
	fmt.Printf("Summary ratio: %.2f\n\n", stats.SummaryRatio)

	levels := make([]int, 0, len(stats.CountsByLevel))
	for level := range stats.CountsByLevel {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	fmt.Println("Active items by level:")
	for _, level := range levels {
		fmt.Printf("  L%d: %d\n", level, stats.CountsByLevel[level])
	}

	fmt.Printf("\nArchive: %d item(s) total\n", stats.Archive.Total)
	for _, ls := range stats.Archive.Levels {
		fmt.Printf("  L%d: %d item(s)\n", ls.Level, ls.Count)
	}

	return nil
}

func (c *statsCommander) fetchStats() (*engine.Stats, error) {
	url := fmt.Sprintf("%s/v1/entities/%s/stats", c.apiTarget, c.entity)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Strata API at %s: %w", c.apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var stats engine.Stats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("parsing API response: %w", err)
	}

	return &stats, nil
}
