package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishKeysByAggregate(t *testing.T) {
	w := &fakeWriter{}
	b := newBroker(w, "booking.", logger.Nop())

	msg := messaging.Message{
		ID:          "evt-1",
		Type:        "appointment.created",
		AggregateID: "apt-42",
		Payload:     json.RawMessage(`{"id":"apt-42"}`),
		OccurredAt:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, b.Publish(context.Background(), msg.Type, msg))

	require.Len(t, w.messages, 1)
	got := w.messages[0]
	assert.Equal(t, "booking.appointment.created", got.Topic)
	assert.Equal(t, []byte("apt-42"), got.Key)

	headers := map[string]string{}
	for _, h := range got.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "evt-1", headers["event_id"])
	assert.Equal(t, "appointment.created", headers["event_type"])

	var decoded messaging.Message
	require.NoError(t, json.Unmarshal(got.Value, &decoded))
	assert.Equal(t, "apt-42", decoded.AggregateID)
}

func TestPublishPropagatesWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	b := newBroker(w, "", logger.Nop())

	err := b.Publish(context.Background(), "x", map[string]string{"a": "b"})
	assert.Error(t, err)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, SplitBrokers(" k1:9092 ,k2:9092,,"))
	assert.Empty(t, SplitBrokers(""))
}
