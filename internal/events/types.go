// Package events provides an asynchronous event bus that decouples the
// controller's control path from state broadcasting, metrics and error
// telemetry. Publishing never blocks: when the buffer is full the event is
// dropped and counted.
package events

import (
	"time"
)

// Event is anything the bus can carry.
type Event interface {
	EventType() string // e.g. "state_changed"
	GetTimestamp() time.Time
}

// ErrorEvent is the view of an errors.EnhancedError the bus needs. It is
// declared here so the errors package does not import events.
type ErrorEvent interface {
	GetComponent() string
	GetCategory() string
	GetContext() map[string]any
	GetTimestamp() time.Time
	GetError() error
	IsReported() bool
	MarkReported()
}

// EventConsumer receives every event on a bus worker. Consumers ignore
// types they do not handle; a returned error is logged and counted.
type EventConsumer interface {
	Name() string
	ProcessEvent(event Event) error
}

// EventBusStats are cumulative counters since New.
type EventBusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64 // successful consumer deliveries
	EventsDropped   uint64
	ConsumerErrors  uint64
	FastPathHits    uint64 // publishes skipped because no consumer was registered
}

// Event type names.
const (
	TypeStateChanged = "state_changed"
	TypeError        = "error"
)

// ErrorEnvelope carries an ErrorEvent over the bus.
type ErrorEnvelope struct {
	ErrorEvent
}

// EventType implements Event.
func (ErrorEnvelope) EventType() string { return TypeError }
