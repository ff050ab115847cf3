package events

import (
	"encoding/json"
	"time"

	"github.com/quantalab/quanta/internal/domain"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// JobStatusData contains data for job lifecycle events. It is broadcast on
// every status transition, both on the type channel and on the per-job topic.
type JobStatusData struct {
	JobID     string                   `json:"jobId"`
	ProblemID string                   `json:"problemId"`
	Status    domain.JobStatus         `json:"status"`
	Backend   string                   `json:"backend,omitempty"`
	Result    *domain.QuantumJobResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// EventType returns the event type for JobStatusData
// Note: The actual event type is determined by the Status field
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case domain.StatusRunning:
		return JobRunning
	case domain.StatusCompleted:
		return JobCompleted
	case domain.StatusFailed:
		return JobFailed
	default:
		return JobQueued
	}
}

// ProblemSolvedData contains data for ProblemSolved events
type ProblemSolvedData struct {
	ProblemID          string  `json:"problem_id"`
	IsQuantumAdvantage bool    `json:"is_quantum_advantage"`
	ExecutionTime      float64 `json:"execution_time"`
}

// EventType returns the event type for ProblemSolvedData
func (d *ProblemSolvedData) EventType() EventType {
	return ProblemSolved
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// SystemStatusChangedData contains data for SystemStatusChanged events
type SystemStatusChangedData struct {
	Status     string  `json:"status,omitempty"`
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float64 `json:"ram_percent"`
	Queued     int     `json:"queued"`
	Running    int     `json:"running"`
}

// EventType returns the event type for SystemStatusChangedData
func (d *SystemStatusChangedData) EventType() EventType {
	return SystemStatusChanged
}

// ArchiveCompletedData contains data for ArchiveCompleted events
type ArchiveCompletedData struct {
	Jobs      int    `json:"jobs"`
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for ArchiveCompletedData
func (d *ArchiveCompletedData) EventType() EventType {
	return ArchiveCompleted
}

// convertEventDataToMap converts typed EventData to map[string]interface{}
// for the legacy Event.Data representation
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}
