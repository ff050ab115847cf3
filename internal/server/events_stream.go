package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantalab/quanta/internal/events"
)

// EventsStreamHandler handles unified Server-Sent Events (SSE) streaming for
// all system events.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// streamedEventTypes are the event types forwarded when no filter is given
var streamedEventTypes = []events.EventType{
	events.JobQueued,
	events.JobRunning,
	events.JobCompleted,
	events.JobFailed,
	events.ProblemSolved,
	events.ErrorOccurred,
	events.SystemStatusChanged,
	events.ArchiveCompleted,
}

// NewEventsStreamHandler creates a new unified events stream handler
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
// Query parameters:
//   - types: comma-separated event types to forward (default: all)
//   - job: a job id; only events for that job are forwarded
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	typesFilter := r.URL.Query().Get("types")
	jobFilter := r.URL.Query().Get("job")

	var allowedTypes map[events.EventType]bool
	if typesFilter != "" {
		allowedTypes = make(map[events.EventType]bool)
		for _, t := range strings.Split(typesFilter, ",") {
			allowedTypes[events.EventType(strings.TrimSpace(t))] = true
		}
	}

	h.log.Info().
		Str("types_filter", typesFilter).
		Str("job_filter", jobFilter).
		Msg("Client connected to unified event stream")

	// Buffered so a slow client drops events instead of blocking the bus
	eventChan := make(chan *events.Event, 100)

	eventHandler := func(event *events.Event) {
		if allowedTypes != nil && !allowedTypes[event.Type] {
			return
		}

		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	var unsubscribes []func()
	if jobFilter != "" {
		unsubscribes = append(unsubscribes, h.eventBus.SubscribeTopic(events.JobTopic(jobFilter), eventHandler))
	} else if allowedTypes != nil {
		for eventType := range allowedTypes {
			unsubscribes = append(unsubscribes, h.eventBus.Subscribe(eventType, eventHandler))
		}
	} else {
		for _, eventType := range streamedEventTypes {
			unsubscribes = append(unsubscribes, h.eventBus.Subscribe(eventType, eventHandler))
		}
	}
	defer func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}()

	done := r.Context().Done()

	// Send initial connection message
	fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
		"type":    "connected",
		"message": "Connected to unified event stream",
	}))
	flusher.Flush()

	// Heartbeat ticker to keep connection alive
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.log.Debug().
				Str("event_type", string(event.Type)).
				Msg("Sending event to client")

			eventJSON := h.encodeEvent(map[string]interface{}{
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			})

			fmt.Fprintf(w, "data: %s\n\n", eventJSON)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "data: %s\n\n", h.encodeEvent(map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			}))
			flusher.Flush()
		}
	}
}

// encodeEvent encodes an event map to a JSON string
func (h *EventsStreamHandler) encodeEvent(event map[string]interface{}) string {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}
