// Package searchcmder provides the search command for querying an
// entity's memory archive via the Strata API.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/dotdir"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/search"
	"github.com/papercomputeco/strata/pkg/utils"
)

type searchCommander struct {
	query    string
	entity   string
	maxLevel int
	quiet    bool

	apiTarget string

	debug  bool
	logger *zap.Logger
}

const searchLongDesc string = `Search an entity's memory archive via the Strata API.

Scans archive levels from the most compressed down, stopping at the first
level with matches. The search path shows which levels were scanned and
how many results each produced.

If --entity is omitted, the entity selected with "strata entity use" is
used.

Use --quiet to output only item IDs, one per line. This is useful for
piping into "strata" decompress workflows.

Example:
  strata search "database migration" --entity alice
  strata search "deploy schedule" --max-level 1
  strata search "preferences" --quiet`

const searchShortDesc string = "Search an entity's memory archive"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.resolve(cmd, configDir)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.entity, "entity", "e", "", "Memory entity to search")
	cmd.Flags().IntVar(&cmder.maxLevel, "max-level", -1, "Highest archive level to scan (-1 for all)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only item IDs, one per line (for piping)")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", defaults.Client.APITarget, "Strata API server URL")

	return cmd
}

func (c *searchCommander) resolve(cmd *cobra.Command, configDir string) error {
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

func (c *searchCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	output, err := SearchAPI(c.apiTarget, c.entity, c.query, c.maxLevel)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
			if len(output.Path) > 0 {
				fmt.Printf("Search path: %s\n", strings.Join(output.Path, " -> "))
			}
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Println(result.Item.ID)
		}
		return nil
	}

	fmt.Printf("\nSearch results for %q (%d found)\n", output.Query, output.Count)
	if len(output.Path) > 0 {
		fmt.Printf("Search path: %s\n", strings.Join(output.Path, " -> "))
	}
	if output.UsedFallback {
		fmt.Println("Results came from the external memory fallback.")
	}
	fmt.Println()

	for i, result := range output.Results {
		c.printResult(i+1, result)
	}

	return nil
}

func (c *searchCommander) printResult(rank int, result search.Result) {
	preview := strings.ReplaceAll(utils.Truncate(result.Item.Text, 80), "\n", " ")

	fmt.Printf("  #%d  score: %.4f  L%d  %s\n", rank, result.Score, result.Item.Level, result.Item.ID)
	fmt.Printf("      [%s] %s\n\n", result.Source, preview)
}

// SearchAPI calls the strata search API and returns the parsed output.
func SearchAPI(apiTarget, entity, query string, maxLevel int) (*search.Output, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = fmt.Sprintf("/v1/entities/%s/search", entity)
	q := searchURL.Query()
	q.Set("query", query)
	if maxLevel >= 0 {
		q.Set("max_level", strconv.Itoa(maxLevel))
	}
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Strata API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output search.Output
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}
