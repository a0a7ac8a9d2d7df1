package notify

import (
	"context"
	"time"

	"github.com/PratikDhanave/event-scheduling-service/internal/models"
)

// Change types carried in the message envelope and the "change_type" header.
const (
	ChangeEventCreated = "event.created"
	ChangeEventUpdated = "event.updated"
)

// Publisher announces event changes to downstream consumers.
type Publisher interface {
	PublishEventCreated(ctx context.Context, event models.Event) error
	PublishEventUpdated(ctx context.Context, event models.Event, entry models.LogEntry) error
	Close() error
}

// ChangeMessage is the JSON body written for every change.
type ChangeMessage struct {
	MessageID  string           `json:"message_id"`
	ChangeType string           `json:"change_type"`
	EventID    string           `json:"event_id"`
	Event      models.Event     `json:"event"`
	Log        *models.LogEntry `json:"log,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// NoOpPublisher drops every message. Used when no broker is configured.
type NoOpPublisher struct{}

// NewNoOpPublisher returns a publisher that does nothing.
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

func (NoOpPublisher) PublishEventCreated(context.Context, models.Event) error { return nil }

func (NoOpPublisher) PublishEventUpdated(context.Context, models.Event, models.LogEntry) error {
	return nil
}

func (NoOpPublisher) Close() error { return nil }
