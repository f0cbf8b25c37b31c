package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/howshous/analytics/internal/common/config"
	"github.com/howshous/analytics/internal/common/logger"
)

// Producer publishes JSON-encoded events to Kafka topics.
type Producer struct {
	writer *kafkago.Writer
	logger *logger.Logger
}

// NewProducer creates a producer for the configured brokers.
func NewProducer(cfg config.KafkaConfig, log *logger.Logger) *Producer {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
	}

	return &Producer{writer: writer, logger: log}
}

// PublishEvent marshals event to JSON and writes it to topic keyed by key.
// Messages with the same key land on the same partition, preserving per-key
// ordering.
func (p *Producer) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", topic, err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer reads messages from a single topic as part of a consumer group.
type Consumer struct {
	reader *kafkago.Reader
	logger *logger.Logger
}

// NewConsumer creates a consumer group reader for the given topic.
func NewConsumer(cfg config.KafkaConfig, topic string, log *logger.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})

	return &Consumer{reader: reader, logger: log}
}

// Consume fetches the next message and invokes handler. The message offset is
// committed only after handler returns nil, so failed messages are redelivered;
// handlers must be idempotent.
func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, key, value []byte) error) error {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch message: %w", err)
	}

	if err := handler(ctx, msg.Key, msg.Value); err != nil {
		return fmt.Errorf("handler failed for offset %d: %w", msg.Offset, err)
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
	}

	return nil
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// UnmarshalEvent decodes a JSON-encoded Kafka message value into v.
func UnmarshalEvent(value []byte, v interface{}) error {
	if err := json.Unmarshal(value, v); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return nil
}
