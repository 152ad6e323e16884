// Package events provides a synchronous in-process event bus for story
// lifecycle notifications.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies an event published on the bus.
type EventType string

const (
	// MemoryStored is published after a memory is persisted.
	MemoryStored EventType = "memory.stored"

	// MemoryForgotten is published after memories are evicted.
	MemoryForgotten EventType = "memory.forgotten"

	// ActionGenerated is published after a character action is generated.
	ActionGenerated EventType = "action.generated"

	// DialogueGenerated is published after character dialogue is generated.
	DialogueGenerated EventType = "dialogue.generated"

	// SystemError is published when a background operation fails in a way no
	// request handler can report.
	SystemError EventType = "system.error"
)

// Event is a single notification delivered to subscribers.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Type classifies the event.
	Type EventType `json:"type"`

	// Payload carries event-specific data.
	Payload map[string]interface{} `json:"payload"`

	// Source names the component that published the event.
	Source string `json:"source"`

	// Timestamp is when the event was published.
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event with a fresh id and timestamp.
func NewEvent(eventType EventType, payload map[string]interface{}, source string) Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Bus is a synchronous publish/subscribe event bus.
//
// Subscribers register per event type or for all events. Publish delivers
// to every matching handler in subscription order before returning.
//
// Example:
//
//	bus := events.NewBus()
//	cancel := bus.Subscribe(events.MemoryStored, func(e events.Event) {
//	    log.Printf("stored: %v", e.Payload)
//	})
//	defer cancel()
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventType]map[int]Handler
	all      map[int]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType]map[int]Handler),
		all:      make(map[int]Handler),
	}
}

// Subscribe registers a handler for one event type.
//
// Returns an unsubscribe function. Calling it more than once is harmless.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[int]Handler)
	}
	b.handlers[eventType][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[eventType], id)
	}
}

// SubscribeAll registers a handler for every event type.
//
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.all[id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// Publish delivers the event to every matching subscriber.
//
// Delivery is synchronous; Publish returns once every handler has run.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	typed := make([]Handler, 0, len(b.handlers[event.Type]))
	for _, h := range b.handlers[event.Type] {
		typed = append(typed, h)
	}
	global := make([]Handler, 0, len(b.all))
	for _, h := range b.all {
		global = append(global, h)
	}
	b.mu.RUnlock()

	for _, h := range typed {
		h(event)
	}
	for _, h := range global {
		h(event)
	}
}

// SubscriberCount reports the number of handlers registered for a type,
// not counting SubscribeAll handlers.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}
