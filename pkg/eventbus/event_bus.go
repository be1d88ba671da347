// Package eventbus publishes and consumes party lifecycle events.
package eventbus

import (
	"context"

	"github.com/leaseflow/leaseflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// Keyed pairs an event with its partition key so it can be published later.
type Keyed struct {
	Key   string
	Event Event
}

// PublishAll publishes events in order and stops at the first failure.
func PublishAll(ctx context.Context, publisher EventPublisher, pending []Keyed) error {
	for _, item := range pending {
		err := publisher.Publish(ctx, item.Key, item.Event)
		if err != nil {
			return err
		}
	}

	return nil
}
