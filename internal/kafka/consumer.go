package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-gatepass/internal/config"
	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader the consumer needs
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer follows the pass created/deleted topics
type Consumer struct {
	Reader MessageReader
	Logger *logger.Logger
}

// NewConsumer subscribes groupID to both pass event topics
func NewConsumer(brokers []string, topics config.TopicConfig, groupID string, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Discard()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: []string{topics.PassCreated, topics.PassDeleted},
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{Reader: reader, Logger: log}
}

// Run hands every decodable event to handler until ctx is done.
// Undecodable messages are logged and skipped.
func (c *Consumer) Run(ctx context.Context, handler func(models.PassEvent)) error {
	c.Logger.LogKafka("SUBSCRIBE", "pass events", "consumer started")

	for {
		msg, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return fmt.Errorf("read pass event: %w", err)
		}

		var event models.PassEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at %s/%d: %v", msg.Topic, msg.Offset, err))
			continue
		}

		c.Logger.Debug("KAFKA", fmt.Sprintf("Received %s for pass #%d", event.Type, event.PassID))
		handler(event)
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.Reader.Close()
}
