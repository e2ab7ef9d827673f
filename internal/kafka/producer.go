package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ms-gatepass/internal/config"
	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// PublishPassEvent streams a pass lifecycle event, keyed by pass id
func (p *Producer) PublishPassEvent(ctx context.Context, event models.PassEvent) error {
	topic, err := p.topicFor(event.Type)
	if err != nil {
		return err
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.Logger != nil {
		p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("pass #%d", event.PassID))
	}

	return p.Writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   []byte(strconv.FormatInt(event.PassID, 10)),
			Value: msgBytes,
		},
	)
}

func (p *Producer) topicFor(eventType string) (string, error) {
	switch eventType {
	case models.PassEventCreated:
		return p.Topics.PassCreated, nil
	case models.PassEventDeleted:
		return p.Topics.PassDeleted, nil
	default:
		return "", fmt.Errorf("unknown pass event type %q", eventType)
	}
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
