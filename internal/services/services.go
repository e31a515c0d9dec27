package services

import (
	"context"

	"github.com/tersedak-care/apiserver/internal/mq"
)

// ValidationError is a rejected input. Message is safe to show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// EventPublisher delivers domain events. Implementations must not block the
// caller on broker failures.
type EventPublisher interface {
	Publish(ctx context.Context, event mq.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, mq.Event) {}

func publisherOrNop(events EventPublisher) EventPublisher {
	if events == nil {
		return nopPublisher{}
	}
	return events
}
