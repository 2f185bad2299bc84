// Package eventbus provides an in-process fan-out publish/subscribe bus.
package eventbus

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// EventBus is the untyped bus used by the batch orchestrator and collectors.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus implementation.
type Bus = TypedBus[Event]

// New creates a new Bus.
func New() *Bus { return NewTyped[Event]() }

var _ EventBus = (*Bus)(nil)
