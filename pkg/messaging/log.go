package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/booking-api/pkg/logger"
)

// LogBroker writes messages to the log instead of a transport. It backs
// local development and the in-memory storage mode.
type LogBroker struct {
	logger *logger.Logger
}

func NewLogBroker(logger *logger.Logger) *LogBroker {
	return &LogBroker{logger: logger}
}

func (b *LogBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	b.logger.Info("message published", "channel", channel, "payload", string(payload))
	return nil
}

func (b *LogBroker) Close() error {
	return nil
}
