package event

import (
	"context"
)

// Emitter records domain events for asynchronous delivery. Scheduling
// services depend on this rather than on the outbox directly.
type Emitter interface {
	Emit(ctx context.Context, eventType, aggregateID string, payload interface{}) error
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, string, interface{}) error { return nil }
