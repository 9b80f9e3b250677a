// Package kafka provides a Kafka-backed eventstream publisher.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/eventstream"
)

// DefaultTopic is the Kafka topic compaction events are published to when
// none is configured.
const DefaultTopic = "strata.compaction"

// Publisher publishes compaction events to a Kafka topic. Events are keyed
// by entity so one entity's events stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers is the broker address list. Required.
	Brokers []string

	// Topic is the destination topic. Defaults to DefaultTopic.
	Topic string

	// BatchTimeout is how long the writer buffers before flushing.
	BatchTimeout time.Duration
}

// NewPublisher creates a Kafka-backed publisher.
func NewPublisher(c Config, logger *zap.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	batchTimeout := c.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 50 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishCompaction encodes the event as JSON and writes it keyed by entity.
func (p *Publisher) PublishCompaction(ctx context.Context, event *eventstream.CompactionAppliedEvent) error {
	if event == nil {
		return eventstream.ErrNilCompactionEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode compaction event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Entity),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish compaction event: %w", err)
	}

	p.logger.Debug("published compaction event",
		zap.String("event_id", event.EventID),
		zap.String("entity", event.Entity),
		zap.Int("actions", len(event.Actions)))

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
