package outbox

import "context"

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// Keyed events carry the aggregate id used to order them on a partitioned
// transport.
type Keyed interface {
	EventKey() string
}

// Handler processes a published event.
type Handler func(ctx context.Context, e Event) error

// Publisher publishes events to interested subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// KeyOf returns the event key, or the event name for unkeyed events.
func KeyOf(e Event) string {
	if k, ok := e.(Keyed); ok && k.EventKey() != "" {
		return k.EventKey()
	}
	return e.EventName()
}
