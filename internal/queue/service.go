// Package queue implements the durable quantum job queue and its worker
// pool. The queue owns every QuantumJob record: workers are the only
// writers, everyone else observes snapshots or broadcast events.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantalab/quanta/internal/domain"
	"github.com/quantalab/quanta/internal/events"
)

var (
	// ErrWaitTimeout is returned when a job does not reach a terminal
	// state within the configured wait deadline.
	ErrWaitTimeout = errors.New("timed out waiting for job")
	// ErrNotRunning is returned when the service is used before Open or
	// after Close.
	ErrNotRunning = errors.New("job queue is not running")
)

// Config holds queue service configuration
type Config struct {
	Workers     int           // Bounded worker pool size
	WaitTimeout time.Duration // Default deadline for WaitForJob
}

// waiter is a registered WaitForJob caller
type waiter struct {
	id int
	ch chan domain.QuantumJob
}

// Service is the job queue: it accepts circuit submissions, persists them,
// executes them asynchronously through the worker pool, and broadcasts
// every status transition on the event bus (globally and on the per-job
// topic).
type Service struct {
	store    *Store
	selector BackendSelector
	executor Executor
	em       *events.Manager
	log      zerolog.Logger

	workers     int
	waitTimeout time.Duration

	mu           sync.Mutex
	jobs         map[string]*domain.QuantumJob
	waiters      map[string][]waiter
	nextWaiterID int
	started      bool

	trigger chan struct{}
	stop    chan struct{}
	execCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a job queue service
func NewService(store *Store, selector BackendSelector, executor Executor, em *events.Manager, cfg Config, log zerolog.Logger) *Service {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	waitTimeout := cfg.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = 2 * time.Minute
	}

	return &Service{
		store:       store,
		selector:    selector,
		executor:    executor,
		em:          em,
		log:         log.With().Str("component", "job_queue").Logger(),
		workers:     workers,
		waitTimeout: waitTimeout,
		jobs:        make(map[string]*domain.QuantumJob),
		waiters:     make(map[string][]waiter),
		trigger:     make(chan struct{}, 1),
		stop:        make(chan struct{}),
	}
}

// Open recovers persisted jobs and starts the worker pool
func (s *Service) Open() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	// Jobs left mid-flight by a previous process are requeued
	requeued, err := s.store.ResetStalled()
	if err != nil {
		return fmt.Errorf("failed to reset stalled jobs: %w", err)
	}
	if requeued > 0 {
		s.log.Warn().Int64("jobs", requeued).Msg("Requeued jobs from previous run")
	}

	pending, err := s.store.PendingJobs()
	if err != nil {
		return fmt.Errorf("failed to load pending jobs: %w", err)
	}

	s.mu.Lock()
	for _, job := range pending {
		s.jobs[job.ID] = job
	}
	s.mu.Unlock()

	s.execCtx, s.cancel = context.WithCancel(context.Background())

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.workerLoop(i)
	}

	s.log.Info().
		Int("workers", s.workers).
		Int("pending", len(pending)).
		Msg("Job queue started")

	if len(pending) > 0 {
		s.wake()
	}

	return nil
}

// Close stops the worker pool and waits for in-flight executions
func (s *Service) Close() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stop)
	s.cancel()
	s.wg.Wait()
	s.log.Info().Msg("Job queue stopped")
}

// Submit creates a new QUEUED job for the circuit, persists it, and wakes
// the worker pool. Safe to call concurrently; each call produces an
// independent job.
func (s *Service) Submit(ctx context.Context, circuit domain.QuantumCircuit, problemType domain.ProblemType, shots int, problemID string) (*domain.QuantumJob, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("shots must be positive, got %d", shots)
	}

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil, ErrNotRunning
	}

	backend, err := s.selector.Select(circuit)
	if err != nil {
		return nil, fmt.Errorf("backend selection failed: %w", err)
	}

	job := &domain.QuantumJob{
		ID:          uuid.New().String(),
		ProblemID:   problemID,
		ProblemType: problemType,
		Circuit:     circuit,
		Shots:       shots,
		Status:      domain.StatusQueued,
		Backend:     backend,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.Enqueue(job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	snapshot := *job
	s.mu.Unlock()

	s.log.Info().
		Str("job_id", job.ID).
		Str("problem_id", problemID).
		Str("backend", backend).
		Int("qubits", circuit.Qubits).
		Int("shots", shots).
		Msg("Job submitted")

	s.broadcast(&snapshot)
	s.wake()

	return &snapshot, nil
}

// GetJob returns a snapshot of a job by id
func (s *Service) GetJob(jobID string) (*domain.QuantumJob, error) {
	s.mu.Lock()
	if job, ok := s.jobs[jobID]; ok {
		snapshot := *job
		s.mu.Unlock()
		return &snapshot, nil
	}
	s.mu.Unlock()

	return s.store.GetByID(jobID)
}

// WaitForJob suspends the caller until the job reaches a terminal state and
// returns the final record. Honors context cancellation; after the
// configured wait deadline it fails with ErrWaitTimeout. It never returns a
// QUEUED or RUNNING job.
func (s *Service) WaitForJob(ctx context.Context, jobID string) (*domain.QuantumJob, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		// Not in the runtime index: either unknown or already terminal
		// and evicted; the store is authoritative.
		stored, err := s.store.GetByID(jobID)
		if err != nil {
			return nil, err
		}
		if stored.Status.IsTerminal() {
			return stored, nil
		}
		return nil, fmt.Errorf("job %s is not indexed and not terminal", jobID)
	}

	if job.Status.IsTerminal() {
		snapshot := *job
		s.mu.Unlock()
		return &snapshot, nil
	}

	s.nextWaiterID++
	w := waiter{id: s.nextWaiterID, ch: make(chan domain.QuantumJob, 1)}
	s.waiters[jobID] = append(s.waiters[jobID], w)
	s.mu.Unlock()

	timer := time.NewTimer(s.waitTimeout)
	defer timer.Stop()

	select {
	case final := <-w.ch:
		return &final, nil
	case <-timer.C:
		s.removeWaiter(jobID, w.id)
		return nil, fmt.Errorf("%w: %s after %s", ErrWaitTimeout, jobID, s.waitTimeout)
	case <-ctx.Done():
		s.removeWaiter(jobID, w.id)
		return nil, ctx.Err()
	}
}

// Stats describes the current queue population
type Stats struct {
	Queued    int            `json:"queued"`
	Running   int            `json:"running"`
	Completed int            `json:"completed"`
	Failed    int            `json:"failed"`
	Backends  map[string]int `json:"backends"`
}

// GetStats returns queue statistics from the durable store
func (s *Service) GetStats() (*Stats, error) {
	byStatus, err := s.store.CountByStatus()
	if err != nil {
		return nil, err
	}

	byBackend, err := s.store.CountByBackend()
	if err != nil {
		return nil, err
	}

	return &Stats{
		Queued:    byStatus[domain.StatusQueued],
		Running:   byStatus[domain.StatusRunning],
		Completed: byStatus[domain.StatusCompleted],
		Failed:    byStatus[domain.StatusFailed],
		Backends:  byBackend,
	}, nil
}

// wake nudges the worker pool; non-blocking, a pending nudge is enough
func (s *Service) wake() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Service) removeWaiter(jobID string, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.waiters[jobID]
	for i, w := range ws {
		if w.id == id {
			s.waiters[jobID] = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(s.waiters[jobID]) == 0 {
		delete(s.waiters, jobID)
	}
}

// broadcast emits a job status event on the type channel and the per-job
// topic. Called on every transition.
func (s *Service) broadcast(job *domain.QuantumJob) {
	data := &events.JobStatusData{
		JobID:     job.ID,
		ProblemID: job.ProblemID,
		Status:    job.Status,
		Backend:   job.Backend,
		Result:    job.Result,
		Error:     job.Error,
		Timestamp: time.Now(),
	}

	s.em.EmitTypedTopic(events.JobTopic(job.ID), data.EventType(), "queue", data)
}
