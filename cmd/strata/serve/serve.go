// Package servecmder provides the serve command for running the strata servers.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/api"
	"github.com/papercomputeco/strata/api/mcp"
	"github.com/papercomputeco/strata/pkg/config"
	"github.com/papercomputeco/strata/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/strata/pkg/embeddings/utils"
	"github.com/papercomputeco/strata/pkg/engine"
	eventstreamutils "github.com/papercomputeco/strata/pkg/eventstream/utils"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/persistence"
	persistenceutils "github.com/papercomputeco/strata/pkg/persistence/utils"
	"github.com/papercomputeco/strata/pkg/policy"
	"github.com/papercomputeco/strata/pkg/recall"
	staticrecall "github.com/papercomputeco/strata/pkg/recall/static"
	"github.com/papercomputeco/strata/pkg/recall/vectorrecall"
	"github.com/papercomputeco/strata/pkg/summarizer"
	summarizerutils "github.com/papercomputeco/strata/pkg/summarizer/utils"
	"github.com/papercomputeco/strata/pkg/vector"
	vectorutils "github.com/papercomputeco/strata/pkg/vector/utils"
	"github.com/papercomputeco/strata/pkg/worker"
)

const serveLongDesc string = `Run the strata memory servers.

Starts the HTTP API server for ingesting and querying entity memory, plus an
MCP server exposing memory search and decompression as agent tools.

Configuration is resolved in precedence order: CLI flags, STRATA_* environment
variables, config.toml in the .strata/ directory, then built-in defaults.`

const serveShortDesc string = "Run the strata memory servers"

// serveFlags is the flag registry for the serve command.
var serveFlags = config.FlagSet{
	config.FlagAPIListen:        {Name: "api-listen", Shorthand: "a", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	config.FlagBudgetMax:        {Name: "budget-max", ViperKey: "engine.budget_max", Description: "Active memory character budget per entity"},
	config.FlagL1Threshold:      {Name: "l1-threshold", ViperKey: "engine.l1_threshold", Description: "Raw item count that triggers level-1 summarization"},
	config.FlagHierThreshold:    {Name: "hierarchical-threshold", ViperKey: "engine.hierarchical_threshold", Description: "Summary ratio that triggers hierarchical merging"},
	config.FlagSpeaker:          {Name: "speaker", ViperKey: "engine.speaker", Description: "Default conversation partner label"},
	config.FlagSummarizerProv:   {Name: "summarizer-provider", ViperKey: "summarizer.provider", Description: "Summarizer provider (ollama, anthropic, openai, static)"},
	config.FlagSummarizerTgt:    {Name: "summarizer-target", ViperKey: "summarizer.target", Description: "Summarizer backend URL"},
	config.FlagSummarizerModel:  {Name: "summarizer-model", ViperKey: "summarizer.model", Description: "Summarizer model name"},
	config.FlagRecallProv:       {Name: "recall-provider", ViperKey: "recall.provider", Description: "External memory service provider (none, static, vector)"},
	config.FlagVectorStoreProv:  {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (sqlitevec, qdrant)"},
	config.FlagVectorStoreTgt:   {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store target (path or host:port)"},
	config.FlagEmbeddingProv:    {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama)"},
	config.FlagEmbeddingTgt:     {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding backend URL"},
	config.FlagEmbeddingModel:   {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	config.FlagEmbeddingDims:    {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding vector dimensions"},
	config.FlagPersistenceProv:  {Name: "persistence-provider", ViperKey: "persistence.provider", Description: "Snapshot persistence provider (none, sqlite, postgres)"},
	config.FlagPersistenceTgt:   {Name: "persistence-target", ViperKey: "persistence.target", Description: "Snapshot persistence target (path or connection string)"},
	config.FlagSnapshotSchedule: {Name: "snapshot-schedule", ViperKey: "persistence.snapshot_schedule", Description: "Cron expression for periodic snapshots (e.g. @every 5m)"},
	config.FlagEventStreamProv:  {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Compaction event publisher (none, kafka)"},
	config.FlagEventStreamTopic: {Name: "eventstream-topic", ViperKey: "eventstream.topic", Description: "Compaction event topic"},
}

// serveFlagKeys lists every registry key serve binds to viper.
var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagBudgetMax,
	config.FlagL1Threshold,
	config.FlagHierThreshold,
	config.FlagSpeaker,
	config.FlagSummarizerProv,
	config.FlagSummarizerTgt,
	config.FlagSummarizerModel,
	config.FlagRecallProv,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagPersistenceProv,
	config.FlagPersistenceTgt,
	config.FlagSnapshotSchedule,
	config.FlagEventStreamProv,
	config.FlagEventStreamTopic,
}

type serveCommander struct {
	apiListen        string
	mcpListen        string
	budgetMax        int
	l1Threshold      int
	hierThreshold    float64
	speaker          string
	summarizerProv   string
	summarizerTgt    string
	summarizerModel  string
	recallProv       string
	vectorProv       string
	vectorTgt        string
	embeddingProv    string
	embeddingTgt     string
	embeddingModel   string
	embeddingDims    uint
	persistenceProv  string
	persistenceTgt   string
	snapshotSchedule string
	eventstreamProv  string
	eventstreamTopic string

	debug     bool
	configDir string

	v      *viper.Viper
	logger *zap.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)
			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.resolve()
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.apiListen)
	config.AddIntFlag(cmd, serveFlags, config.FlagBudgetMax, &cmder.budgetMax)
	config.AddIntFlag(cmd, serveFlags, config.FlagL1Threshold, &cmder.l1Threshold)
	config.AddFloatFlag(cmd, serveFlags, config.FlagHierThreshold, &cmder.hierThreshold)
	config.AddStringFlag(cmd, serveFlags, config.FlagSpeaker, &cmder.speaker)
	config.AddStringFlag(cmd, serveFlags, config.FlagSummarizerProv, &cmder.summarizerProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagSummarizerTgt, &cmder.summarizerTgt)
	config.AddStringFlag(cmd, serveFlags, config.FlagSummarizerModel, &cmder.summarizerModel)
	config.AddStringFlag(cmd, serveFlags, config.FlagRecallProv, &cmder.recallProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagPersistenceProv, &cmder.persistenceProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagPersistenceTgt, &cmder.persistenceTgt)
	config.AddStringFlag(cmd, serveFlags, config.FlagSnapshotSchedule, &cmder.snapshotSchedule)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventStreamProv, &cmder.eventstreamProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventStreamTopic, &cmder.eventstreamTopic)

	cmd.Flags().StringVar(&cmder.mcpListen, "mcp-listen", ":8085", "Address for the MCP server to listen on (empty disables MCP)")

	return cmd
}

// resolve reads the effective configuration from viper after flags, env, and
// the config file have been merged.
func (c *serveCommander) resolve() {
	v := c.v

	c.apiListen = v.GetString("api.listen")
	c.budgetMax = v.GetInt("engine.budget_max")
	c.l1Threshold = v.GetInt("engine.l1_threshold")
	c.hierThreshold = v.GetFloat64("engine.hierarchical_threshold")
	c.speaker = v.GetString("engine.speaker")
	c.summarizerProv = v.GetString("summarizer.provider")
	c.summarizerTgt = v.GetString("summarizer.target")
	c.summarizerModel = v.GetString("summarizer.model")
	c.recallProv = v.GetString("recall.provider")
	c.vectorProv = v.GetString("vector_store.provider")
	c.vectorTgt = v.GetString("vector_store.target")
	c.embeddingProv = v.GetString("embedding.provider")
	c.embeddingTgt = v.GetString("embedding.target")
	c.embeddingModel = v.GetString("embedding.model")
	c.embeddingDims = v.GetUint("embedding.dimensions")
	c.persistenceProv = v.GetString("persistence.provider")
	c.persistenceTgt = v.GetString("persistence.target")
	c.snapshotSchedule = v.GetString("persistence.snapshot_schedule")
	c.eventstreamProv = v.GetString("eventstream.provider")
	c.eventstreamTopic = v.GetString("eventstream.topic")
}

func (c *serveCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx := context.Background()

	// Changes are logged, not hot-applied: restart to pick them up.
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.logger.Info("config file changed",
			zap.String("file", e.Name),
			zap.String("op", e.Op.String()),
		)
	})
	c.v.WatchConfig()

	summ, err := c.newSummarizer()
	if err != nil {
		return fmt.Errorf("creating summarizer: %w", err)
	}

	vectorDriver, embedder, err := c.newVectorStack(ctx)
	if err != nil {
		return err
	}
	if vectorDriver != nil {
		defer vectorDriver.Close()
	}

	recaller, err := c.newRecaller(vectorDriver, embedder)
	if err != nil {
		return err
	}
	if recaller != nil {
		defer recaller.Close()
	}

	sink, err := persistenceutils.NewSink(ctx, &persistenceutils.NewSinkOpts{
		ProviderType: c.persistenceProv,
		Target:       c.persistenceTgt,
	})
	if err != nil {
		return fmt.Errorf("creating persistence sink: %w", err)
	}
	defer sink.Close()

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: c.eventstreamProv,
		Brokers:      c.v.GetStringSlice("eventstream.brokers"),
		Topic:        c.eventstreamTopic,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating eventstream publisher: %w", err)
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		Sink:         sink,
		Publisher:    publisher,
		VectorDriver: vectorDriver,
		Embedder:     embedder,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	registry := c.newRegistry(ctx, summ, recaller, sink, pool)

	// Periodic full snapshots, on top of the per-ingest ones.
	var scheduler *cron.Cron
	if c.snapshotSchedule != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(c.snapshotSchedule, func() {
			for _, entity := range registry.Entities() {
				eng := registry.Get(entity)
				pool.Enqueue(worker.Job{
					Entity:   entity,
					Snapshot: eng.Snapshot(),
				})
			}
		})
		if err != nil {
			return fmt.Errorf("invalid snapshot schedule %q: %w", c.snapshotSchedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		c.logger.Info("snapshot schedule active",
			zap.String("schedule", c.snapshotSchedule),
		)
	}

	apiServer := api.NewServer(api.Config{ListenAddr: c.apiListen}, registry, c.logger)

	errChan := make(chan error, 2)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	var mcpHTTP *http.Server
	if c.mcpListen != "" {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Registry: registry,
			Logger:   c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}

		mcpHTTP = &http.Server{
			Addr:              c.mcpListen,
			Handler:           mcpServer.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		c.logger.Info("starting MCP server",
			zap.String("listen", c.mcpListen),
		)

		go func() {
			if err := mcpHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("MCP server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	if err := apiServer.Shutdown(); err != nil {
		c.logger.Warn("API server shutdown failed", zap.Error(err))
	}
	if mcpHTTP != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := mcpHTTP.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("MCP server shutdown failed", zap.Error(err))
		}
	}

	return nil
}

// newRegistry builds the per-entity engine factory. New engines restore
// their state from the latest persisted snapshot when one exists, and report
// compaction actions back to the worker pool.
func (c *serveCommander) newRegistry(
	ctx context.Context,
	summ summarizer.Summarizer,
	recaller recall.Recaller,
	sink persistence.Sink,
	pool *worker.Pool,
) *engine.Registry {
	var registry *engine.Registry

	registry = engine.NewRegistry(func(entity string) *engine.Engine {
		eng := engine.NewEngine(engine.Config{
			Entity:  entity,
			Speaker: c.speaker,
			Ledger: memory.LedgerConfig{
				BudgetMax:             c.budgetMax,
				L1Threshold:           c.l1Threshold,
				HierarchicalThreshold: c.hierThreshold,
			},
			Summarizer: summ,
			Recaller:   recaller,
			Logger:     c.logger,
			OnActions: func(entity string, actions []policy.Action) {
				eng := registry.Get(entity)
				pool.Enqueue(worker.Job{
					Entity:   entity,
					Actions:  actions,
					Snapshot: eng.Snapshot(),
				})
			},
		})

		snap, err := sink.Latest(ctx, entity)
		if err == nil {
			if importErr := eng.ImportSnapshot(snap); importErr != nil {
				c.logger.Warn("failed to restore persisted snapshot",
					zap.String("entity", entity),
					zap.Error(importErr),
				)
			} else {
				c.logger.Info("restored entity from snapshot",
					zap.String("entity", entity),
				)
			}
		} else if !errors.Is(err, persistence.ErrNoSnapshot) {
			c.logger.Warn("failed to load persisted snapshot",
				zap.String("entity", entity),
				zap.Error(err),
			)
		}

		return eng
	})

	return registry
}

func (c *serveCommander) newSummarizer() (summarizer.Summarizer, error) {
	apiKey := ""
	switch c.summarizerProv {
	case "anthropic":
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	return summarizerutils.NewSummarizer(&summarizerutils.NewSummarizerOpts{
		ProviderType: c.summarizerProv,
		TargetURL:    c.summarizerTgt,
		Model:        c.summarizerModel,
		APIKey:       apiKey,
	})
}

// newVectorStack builds the vector driver and embedder when vector recall is
// enabled. Both come back nil when it is not.
func (c *serveCommander) newVectorStack(ctx context.Context) (vector.Driver, embeddings.Embedder, error) {
	if c.recallProv != "vector" {
		return nil, nil, nil
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: c.vectorProv,
		Target:       c.vectorTgt,
		Dimensions:   c.embeddingDims,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating vector driver: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.embeddingProv,
		TargetURL:    c.embeddingTgt,
		Model:        c.embeddingModel,
	})
	if err != nil {
		driver.Close()
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	return driver, embedder, nil
}

func (c *serveCommander) newRecaller(driver vector.Driver, embedder embeddings.Embedder) (recall.Recaller, error) {
	switch c.recallProv {
	case "", "none":
		return nil, nil
	case "static":
		return staticrecall.NewRecaller(nil), nil
	case "vector":
		return vectorrecall.NewRecaller(vectorrecall.Config{
			Driver:   driver,
			Embedder: embedder,
		})
	default:
		return nil, fmt.Errorf("unsupported recall provider: %s", c.recallProv)
	}
}
