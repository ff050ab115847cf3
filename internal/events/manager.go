package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Manager handles event emission and logging
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus (for subscribers)
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit emits an event to the bus and logs it (legacy method with map[string]interface{})
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	m.bus.Emit(eventType, module, data)
	m.logEvent(eventType, module, "", data)
}

// EmitTyped emits an event with typed data to the bus and logs it
func (m *Manager) EmitTyped(eventType EventType, module string, data EventData) {
	dataMap := convertEventDataToMap(data)
	m.bus.Emit(eventType, module, dataMap)
	m.logEvent(eventType, module, "", dataMap)
}

// EmitTypedTopic emits typed data on a topic in addition to the type channel
func (m *Manager) EmitTypedTopic(topic string, eventType EventType, module string, data EventData) {
	dataMap := convertEventDataToMap(data)
	m.bus.EmitTopic(topic, eventType, module, dataMap)
	m.logEvent(eventType, module, topic, dataMap)
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(ErrorOccurred, module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

func (m *Manager) logEvent(eventType EventType, module, topic string, data map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
		Topic:     topic,
	}

	eventJSON, _ := json.Marshal(event)
	m.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")
}
