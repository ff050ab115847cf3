// Package events provides event management functionality.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Job lifecycle events
	JobQueued    EventType = "JOB_QUEUED"
	JobRunning   EventType = "JOB_RUNNING"
	JobCompleted EventType = "JOB_COMPLETED"
	JobFailed    EventType = "JOB_FAILED"

	// Pipeline events
	ProblemSolved EventType = "PROBLEM_SOLVED"
	ErrorOccurred EventType = "ERROR_OCCURRED"

	// Operational events
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"
	ArchiveCompleted    EventType = "ARCHIVE_COMPLETED"
)

// Event represents a system event with typed data
// The Data field can be either EventData (typed) or map[string]interface{} (legacy)
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
	Topic     string                 `json:"topic,omitempty"`
}

// JobTopic returns the per-job broadcast topic for a job id.
// External subscribers join this topic to receive every status transition
// of that specific job.
func JobTopic(jobID string) string {
	return "job:" + jobID
}
