package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/quantalab/quanta/internal/domain"
	"github.com/quantalab/quanta/internal/events"
	"github.com/quantalab/quanta/internal/queue"
)

const jobStreamWriteWait = 10 * time.Second

// JobGetter loads job snapshots for stream joins
type JobGetter interface {
	GetJob(jobID string) (*domain.QuantumJob, error)
}

// JobStreamHandler serves per-job WebSocket status streams. A client joins
// by job id, immediately receives the job's current state, then every
// subsequent transition until the job reaches a terminal state.
type JobStreamHandler struct {
	eventBus *events.Bus
	queue    JobGetter
	log      zerolog.Logger
}

// NewJobStreamHandler creates a per-job stream handler
func NewJobStreamHandler(eventBus *events.Bus, q JobGetter, log zerolog.Logger) *JobStreamHandler {
	return &JobStreamHandler{
		eventBus: eventBus,
		queue:    q,
		log:      log.With().Str("component", "job_stream").Logger(),
	}
}

// jobStreamMessage is one frame of the per-job stream
type jobStreamMessage struct {
	JobID     string                   `json:"jobId"`
	Status    domain.JobStatus         `json:"status"`
	Backend   string                   `json:"backend,omitempty"`
	Result    *domain.QuantumJobResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// ServeHTTP handles GET /api/hybrid/jobs/{jobID}/stream
func (h *JobStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		http.Error(w, "job id is required", http.StatusBadRequest)
		return
	}

	// Subscribe before the snapshot is loaded: a transition landing between
	// the load and the subscription would otherwise be lost, leaving the
	// client stuck on a stale frame.
	eventChan := make(chan *events.Event, 16)
	unsubscribe := h.eventBus.SubscribeTopic(events.JobTopic(jobID), func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().Str("job_id", jobID).Msg("Job stream channel full, dropping event")
		}
	})
	defer unsubscribe()

	job, err := h.queue.GetJob(jobID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			http.Error(w, "no such job", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to load job")
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Str("job_id", jobID).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := r.Context()

	h.log.Info().Str("job_id", jobID).Msg("Client joined job stream")

	// Replay current state on join
	if err := h.writeMessage(ctx, conn, jobStreamMessage{
		JobID:     job.ID,
		Status:    job.Status,
		Backend:   job.Backend,
		Result:    job.Result,
		Error:     job.Error,
		Timestamp: time.Now(),
	}); err != nil {
		return
	}
	if job.Status.IsTerminal() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Str("job_id", jobID).Msg("Client left job stream")
			return

		case event := <-eventChan:
			msg := messageFromEvent(jobID, event)
			if err := h.writeMessage(ctx, conn, msg); err != nil {
				h.log.Debug().Err(err).Str("job_id", jobID).Msg("Job stream write failed")
				return
			}
			if msg.Status.IsTerminal() {
				return
			}
		}
	}
}

func (h *JobStreamHandler) writeMessage(ctx context.Context, conn *websocket.Conn, msg jobStreamMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, jobStreamWriteWait)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}

// messageFromEvent projects a bus event onto a stream frame
func messageFromEvent(jobID string, event *events.Event) jobStreamMessage {
	msg := jobStreamMessage{
		JobID:     jobID,
		Timestamp: event.Timestamp,
	}

	if status, ok := event.Data["status"].(string); ok {
		msg.Status = domain.JobStatus(status)
	}
	if backend, ok := event.Data["backend"].(string); ok {
		msg.Backend = backend
	}
	if errMsg, ok := event.Data["error"].(string); ok {
		msg.Error = errMsg
	}
	if raw, ok := event.Data["result"]; ok && raw != nil {
		msg.Result = resultFromEventData(raw)
	}

	return msg
}

// resultFromEventData rebuilds a result from the generic event payload
func resultFromEventData(raw interface{}) *domain.QuantumJobResult {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}

	result := &domain.QuantumJobResult{}
	if counts, ok := m["counts"].(map[string]interface{}); ok {
		result.Counts = make(map[string]int, len(counts))
		for outcome, count := range counts {
			if n, ok := count.(float64); ok {
				result.Counts[outcome] = int(n)
			}
		}
	}
	if memory, ok := m["memory"].([]interface{}); ok {
		result.Memory = make([]string, 0, len(memory))
		for _, entry := range memory {
			if s, ok := entry.(string); ok {
				result.Memory = append(result.Memory, s)
			}
		}
	}
	if execTime, ok := m["executionTime"].(float64); ok {
		result.ExecutionTime = execTime
	}

	return result
}
