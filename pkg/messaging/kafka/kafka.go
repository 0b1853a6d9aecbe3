package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jwalitptl/booking-api/pkg/circuitbreaker"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging"
)

type Config struct {
	Brokers      []string
	TopicPrefix  string
	BatchTimeout time.Duration
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// messageWriter is the subset of *kafka.Writer the broker needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaBroker struct {
	writer messageWriter
	prefix string
	cb     *circuitbreaker.CircuitBreaker
	logger *logger.Logger
}

func NewKafkaBroker(config Config, logger *logger.Logger) (messaging.Broker, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = 50 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           config.BatchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	return newBroker(writer, config.TopicPrefix, logger), nil
}

func newBroker(writer messageWriter, prefix string, logger *logger.Logger) *KafkaBroker {
	return &KafkaBroker{
		writer: writer,
		prefix: prefix,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:             "kafka-broker",
			FailureThreshold: 5,
			Timeout:          10 * time.Second,
		}),
		logger: logger,
	}
}

// Publish writes message to the topic named after channel. Keyed messages
// keep per-aggregate ordering through the hash balancer.
func (b *KafkaBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Topic: b.prefix + channel,
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(channel)},
		},
	}
	if keyed, ok := message.(messaging.Keyed); ok {
		msg.Key = []byte(keyed.PartitionKey())
	}
	if env, ok := message.(messaging.Message); ok {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "event_id", Value: []byte(env.ID)})
	}

	return b.cb.Execute(func() error {
		if err := b.writer.WriteMessages(ctx, msg); err != nil {
			return fmt.Errorf("failed to write to topic %s: %w", msg.Topic, err)
		}
		b.logger.Debug("published event", "topic", msg.Topic)
		return nil
	})
}

func (b *KafkaBroker) Close() error {
	return b.writer.Close()
}
