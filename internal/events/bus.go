package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(CameraRestartedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event is generic over the concrete type, so dispatch by type
	switch e := ev.(type) {
	case CameraRestartedEvent:
		event.Publish(b.dispatcher, e)
	case StreamStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case StreamFPSEvent:
		event.Publish(b.dispatcher, e)
	case StreamFrameEvent:
		event.Publish(b.dispatcher, e)
	case CameraAddedEvent:
		event.Publish(b.dispatcher, e)
	case CameraRemovedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e CameraRestartedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CameraRestartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamFPSEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamFrameEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CameraAddedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CameraRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unknown handler type
		return func() {}
	}
}
