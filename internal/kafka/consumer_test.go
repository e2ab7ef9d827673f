package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"ms-gatepass/internal/logger"
	"ms-gatepass/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueReader replays queued messages, then returns end
type queueReader struct {
	msgs []kafka.Message
	end  error
}

func (q *queueReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(q.msgs) == 0 {
		return kafka.Message{}, q.end
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return msg, nil
}

func (q *queueReader) Close() error { return nil }

func eventMessage(t *testing.T, event models.PassEvent) kafka.Message {
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Topic: event.Type, Value: value}
}

func TestConsumerDeliversEventsAndSkipsGarbage(t *testing.T) {
	reader := &queueReader{
		msgs: []kafka.Message{
			eventMessage(t, models.PassEvent{Type: models.PassEventCreated, PassID: 1}),
			{Topic: models.PassEventCreated, Value: []byte("{not json")},
			eventMessage(t, models.PassEvent{Type: models.PassEventDeleted, PassID: 1}),
		},
		end: io.EOF,
	}
	c := &Consumer{Reader: reader, Logger: logger.Discard()}

	var got []models.PassEvent
	err := c.Run(context.Background(), func(e models.PassEvent) { got = append(got, e) })

	assert.ErrorIs(t, err, io.EOF)
	require.Len(t, got, 2)
	assert.Equal(t, models.PassEventCreated, got[0].Type)
	assert.Equal(t, models.PassEventDeleted, got[1].Type)
}

func TestConsumerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Consumer{Reader: &queueReader{end: context.Canceled}, Logger: logger.Discard()}
	err := c.Run(ctx, func(models.PassEvent) {})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NoError(t, c.Close())
}
