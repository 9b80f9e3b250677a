// Package worker provides an asynchronous worker pool for the side effects
// of compaction: persisting entity snapshots using the provided
// persistence.Sink, publishing compaction events, and generating embeddings
// for produced summaries using the provided embeddings.Embedder.
//
// The pool decouples durable storage and indexing from the ingest hot path
// so that compaction latency stays bounded by the summarizer alone.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/embeddings"
	"github.com/papercomputeco/strata/pkg/engine"
	"github.com/papercomputeco/strata/pkg/eventstream"
	"github.com/papercomputeco/strata/pkg/persistence"
	"github.com/papercomputeco/strata/pkg/policy"
	"github.com/papercomputeco/strata/pkg/vector"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Entity   string
	Actions  []policy.Action
	Snapshot engine.Snapshot
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Sink is the persistence backend for entity snapshots.
	Sink persistence.Sink

	// Publisher is the optional compaction event publisher.
	Publisher eventstream.Publisher

	// VectorDriver is the optional vector store driver for embeddings.
	VectorDriver vector.Driver

	// Embedder generates optional text embeddings.
	// A configured Embedder is required if VectorDriver is set.
	Embedder embeddings.Embedder

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes compaction side-effect jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("entity", job.Entity),
			zap.Int("actions", len(job.Actions)),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("entity", job.Entity),
			zap.Int("actions", len(job.Actions)),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the API server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("snapshot worker stopped", zap.Uint("worker_id", id))
}

// processJob persists the entity snapshot, publishes the compaction event,
// and indexes produced summaries. Each side effect fails independently;
// errors are logged, never propagated back to ingestion.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	if p.config.Sink != nil {
		if err := p.config.Sink.Write(ctx, job.Snapshot); err != nil {
			p.logger.Error("async snapshot persistence failed",
				zap.String("entity", job.Entity),
				zap.Error(err),
			)
		} else {
			p.logger.Info("snapshot persisted",
				zap.String("entity", job.Entity),
			)
		}
	}

	if p.config.Publisher != nil && len(job.Actions) > 0 {
		event := &eventstream.CompactionAppliedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeCompactionApplied,
			EventID:       uuid.NewString(),
			EmittedAt:     time.Now().UTC(),
			Entity:        job.Entity,
			Actions:       job.Actions,
		}

		if err := p.config.Publisher.PublishCompaction(ctx, event); err != nil {
			p.logger.Warn("failed to publish compaction event",
				zap.String("entity", job.Entity),
				zap.Error(err),
			)
		}
	}

	if p.config.VectorDriver != nil && p.config.Embedder != nil {
		p.indexProduced(ctx, job)
	}
}

// indexProduced generates and stores embeddings for the summaries the
// compaction actions produced. Errors are logged but not returned to avoid
// failing the other side effects.
func (p *Pool) indexProduced(ctx context.Context, job Job) {
	for _, action := range job.Actions {
		for _, item := range action.Produced {
			if item == nil || item.Text == "" {
				continue
			}

			embedding, err := p.config.Embedder.Embed(ctx, item.Text)
			if err != nil {
				p.logger.Warn("failed to generate embedding",
					zap.String("item_id", item.ID),
					zap.Error(err),
				)
				continue
			}

			doc := vector.Document{
				ID:        item.ID,
				Text:      item.Text,
				Embedding: embedding,
			}

			if err := p.config.VectorDriver.Add(ctx, []vector.Document{doc}); err != nil {
				p.logger.Warn("failed to store embedding",
					zap.String("item_id", item.ID),
					zap.Error(err),
				)
				continue
			}

			p.logger.Debug("stored embedding",
				zap.String("item_id", item.ID),
				zap.Int("level", item.Level),
				zap.Int("embedding_dim", len(embedding)),
			)
		}
	}
}
