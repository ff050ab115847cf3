package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler processes an emitted event
type Handler func(event *Event)

// subscription ties a handler to an id so it can be removed later
type subscription struct {
	id      int
	handler Handler
}

// Bus is an in-process publish/subscribe bus. Handlers can subscribe to an
// event type (all events of that type) or to a topic (e.g. a specific job).
// Emission is synchronous; handlers must not block.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventType][]subscription
	topics   map[string][]subscription
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscription),
		topics:   make(map[string][]subscription),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for an event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handlers[eventType] = removeSubscription(b.handlers[eventType], id)
	}
}

// SubscribeTopic registers a handler for a topic (e.g. events.JobTopic(id)).
// Returns an unsubscribe function.
func (b *Bus) SubscribeTopic(topic string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.topics[topic] = removeSubscription(b.topics[topic], id)
		if len(b.topics[topic]) == 0 {
			delete(b.topics, topic)
		}
	}
}

// Emit publishes an event to all subscribers of its type and, when the
// event carries a topic, to all subscribers of that topic.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	b.emit(&Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	})
}

// EmitTopic publishes an event on a topic in addition to its type channel
func (b *Bus) EmitTopic(topic string, eventType EventType, module string, data map[string]interface{}) {
	b.emit(&Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
		Topic:     topic,
	})
}

func (b *Bus) emit(event *Event) {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.handlers[event.Type]))
	subs = append(subs, b.handlers[event.Type]...)
	if event.Topic != "" {
		subs = append(subs, b.topics[event.Topic]...)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(event)
	}
}

func removeSubscription(subs []subscription, id int) []subscription {
	for i, sub := range subs {
		if sub.id == id {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}
