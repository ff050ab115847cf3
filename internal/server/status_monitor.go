package server

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/quantalab/quanta/internal/events"
)

// StatusMonitor periodically samples system status and emits an event when
// it changes meaningfully.
type StatusMonitor struct {
	eventManager   *events.Manager
	systemHandlers *SystemHandlers
	log            zerolog.Logger
	stop           chan struct{}

	lastQueued  int
	lastRunning int
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(eventManager *events.Manager, systemHandlers *SystemHandlers, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		eventManager:   eventManager,
		systemHandlers: systemHandlers,
		log:            log.With().Str("component", "status_monitor").Logger(),
		stop:           make(chan struct{}),
		lastQueued:     -1,
		lastRunning:    -1,
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	go m.monitor(interval)
}

// Stop halts the monitoring loop
func (m *StatusMonitor) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}

// monitor runs the periodic monitoring loop
func (m *StatusMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.checkStatus()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkStatus()
		}
	}
}

// checkStatus samples queue depth and emits when it changed since the last
// sample
func (m *StatusMonitor) checkStatus() {
	if m.eventManager == nil || m.systemHandlers == nil {
		return
	}

	snapshot, err := m.systemHandlers.GetSystemStatusSnapshot()
	if err != nil {
		m.log.Warn().Err(err).Msg("Status check failed")
		return
	}

	queued, running := -1, -1
	if snapshot.Queue != nil {
		queued = snapshot.Queue.Queued
		running = snapshot.Queue.Running
	}

	if queued == m.lastQueued && running == m.lastRunning {
		return
	}
	m.lastQueued = queued
	m.lastRunning = running

	m.eventManager.EmitTyped(events.SystemStatusChanged, "status_monitor", &events.SystemStatusChangedData{
		Status:     snapshot.Status,
		CPUPercent: snapshot.CPUPercent,
		RAMPercent: snapshot.RAMPercent,
		Queued:     queued,
		Running:    running,
	})
}
