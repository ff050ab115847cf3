package queue

import (
	"fmt"
	"time"

	"github.com/quantalab/quanta/internal/domain"
)

// pollInterval bounds how long a dequeued-but-unsignalled job can sit in
// the store before a worker notices it.
const pollInterval = 250 * time.Millisecond

// workerLoop drains the queue whenever woken, with a poll fallback so jobs
// enqueued by another process are still picked up.
func (s *Service) workerLoop(id int) {
	defer s.wg.Done()

	log := s.log.With().Int("worker", id).Logger()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-s.trigger:
		case <-ticker.C:
		}

		for {
			select {
			case <-s.stop:
				return
			default:
			}

			job, err := s.store.Dequeue()
			if err != nil {
				log.Error().Err(err).Msg("Dequeue failed")
				break
			}
			if job == nil {
				break
			}

			s.runJob(job)
		}
	}
}

// runJob drives a single job through RUNNING to a terminal state. Each job
// is executed exactly once: the dequeue already claimed the row, and the
// worker is the sole writer from here on.
func (s *Service) runJob(stored *domain.QuantumJob) {
	s.mu.Lock()
	job, ok := s.jobs[stored.ID]
	if !ok {
		// Recovered from the store without a runtime entry
		job = stored
		s.jobs[job.ID] = job
	}
	job.Status = domain.StatusRunning
	snapshot := *job
	s.mu.Unlock()

	if err := s.store.Update(&snapshot); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist RUNNING status")
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("backend", job.Backend).
		Msg("Job running")
	s.broadcast(&snapshot)

	result, execErr := s.execute(&snapshot)

	s.mu.Lock()
	if execErr != nil {
		job.Status = domain.StatusFailed
		job.Error = execErr.Error()
		job.Result = nil
	} else {
		job.Status = domain.StatusCompleted
		job.Result = result
		job.Error = ""
	}
	now := time.Now().UTC()
	job.CompletedAt = &now
	final := *job
	s.mu.Unlock()

	if err := s.store.Update(&final); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist terminal status")
	}

	if execErr != nil {
		s.log.Error().
			Err(execErr).
			Str("job_id", job.ID).
			Msg("Job failed")
	} else {
		s.log.Info().
			Str("job_id", job.ID).
			Float64("execution_ms", result.ExecutionTime).
			Msg("Job completed")
	}

	s.broadcast(&final)
	s.notifyWaiters(final)
}

// execute runs the job on the backend executor, converting panics into job
// failures so one bad circuit cannot take a worker down.
func (s *Service) execute(job *domain.QuantumJob) (result *domain.QuantumJobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("execution panicked: %v", r)
		}
	}()

	result, err = s.executor.Execute(s.execCtx, job)
	if err == nil && result == nil {
		err = fmt.Errorf("backend %s returned no result", job.Backend)
	}
	return result, err
}

// notifyWaiters delivers the final record to every WaitForJob caller and
// evicts the job from the runtime index: terminal records are served from
// the store, so the index stays bounded by in-flight jobs.
func (s *Service) notifyWaiters(final domain.QuantumJob) {
	s.mu.Lock()
	ws := s.waiters[final.ID]
	delete(s.waiters, final.ID)
	delete(s.jobs, final.ID)
	s.mu.Unlock()

	for _, w := range ws {
		w.ch <- final
	}
}
