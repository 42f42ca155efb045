// Package notify publishes pipeline lifecycle events to a RabbitMQ fanout
// exchange so downstream consumers (the analyze service, dashboards) can
// react without polling the session database.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"scriptflow/internal/services"
)

// Event identifies a pipeline lifecycle notification.
type Event string

const (
	EventEncodingDone Event = "encoding_done"
	EventScriptDone   Event = "script_done"
	EventAnalyzeReady Event = "analyze_ready"
	EventStageFailed  Event = "stage_failed"
)

// Payload carries event-specific fields.
type Payload map[string]any

// Service publishes events. Implementations must be safe for concurrent use.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Close() error
}

// envelope is the wire format written to the exchange.
type envelope struct {
	Event     Event   `json:"event"`
	Timestamp string  `json:"timestamp"`
	Payload   Payload `json:"payload,omitempty"`
}

func encodeEnvelope(event Event, payload Payload) ([]byte, error) {
	body, err := json.Marshal(envelope{
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "notify", "encode", "serialize event", err)
	}
	return body, nil
}

// noopService drops all events. Used when no AMQP URL is configured.
type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Close() error                                  { return nil }

// NewNoop returns a Service that discards every event.
func NewNoop() Service { return noopService{} }
