package orchestrator

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantalab/quanta/internal/domain"
	"github.com/quantalab/quanta/internal/events"
	"github.com/quantalab/quanta/internal/modules/circuit"
	"github.com/quantalab/quanta/internal/modules/decomposer"
	"github.com/quantalab/quanta/internal/modules/interpreter"
	qtesting "github.com/quantalab/quanta/internal/testing"
)

// stubQueue fakes the queue service: Submit records the job, WaitForJob
// returns a configured terminal record.
type stubQueue struct {
	mu       sync.Mutex
	submits  int
	waits    int
	final    *domain.QuantumJob
	finalErr error
}

func (s *stubQueue) Submit(ctx context.Context, c domain.QuantumCircuit, problemType domain.ProblemType, shots int, problemID string) (*domain.QuantumJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits++

	job := qtesting.NewJobFixture(domain.StatusQueued, shots)
	job.ProblemID = problemID
	job.ProblemType = problemType
	job.Circuit = c

	if s.final == nil && s.finalErr == nil {
		final := *job
		final.Status = domain.StatusCompleted
		now := time.Now().UTC()
		final.CompletedAt = &now
		final.Result = qtesting.NewResultFixture(shots)
		s.final = &final
	} else if s.final != nil {
		s.final.ID = job.ID
		s.final.ProblemID = problemID
		s.final.ProblemType = problemType
	}

	return job, nil
}

func (s *stubQueue) Waited() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submits, s.waits
}

func (s *stubQueue) WaitForJob(ctx context.Context, jobID string) (*domain.QuantumJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits++
	if s.finalErr != nil {
		return nil, s.finalErr
	}
	return s.final, nil
}

func newOrchestrator(q JobQueue) *Orchestrator {
	return New(
		decomposer.New(),
		circuit.New(rand.New(rand.NewSource(1))),
		q,
		interpreter.New(nil, zerolog.Nop()),
		nil,
		1024,
		zerolog.Nop(),
	)
}

func TestSolveClassicalOnlyNeverTouchesQueue(t *testing.T) {
	q := &stubQueue{}
	orch := newOrchestrator(q)

	problem := qtesting.NewProblemFixture("say hello", map[string]interface{}{"text": "hello"})
	solution, err := orch.Solve(context.Background(), problem)
	require.NoError(t, err)

	assert.Equal(t, problem.ID, solution.ProblemID)
	assert.False(t, solution.IsQuantumAdvantage)
	assert.Nil(t, solution.QuantumSolution)
	assert.NotNil(t, solution.ClassicalSolution)
	assert.GreaterOrEqual(t, solution.ExecutionTime, 0.0)

	submits, waits := q.Waited()
	assert.Zero(t, submits, "classical-only problems must not submit jobs")
	assert.Zero(t, waits)
}

func TestSolveQuantumPath(t *testing.T) {
	q := &stubQueue{}
	orch := newOrchestrator(q)

	problem := qtesting.NewProblemFixture(
		"find the optimal route between 5 cities",
		map[string]interface{}{"cities": []interface{}{"a", "b", "c", "d", "e"}},
	)

	solution, err := orch.Solve(context.Background(), problem)
	require.NoError(t, err)

	assert.True(t, solution.IsQuantumAdvantage)
	require.NotNil(t, solution.QuantumSolution)
	assert.Greater(t, solution.QuantumSolution.Confidence, 0.0)
	assert.NotEmpty(t, solution.QuantumSolution.Distribution)

	submits, waits := q.Waited()
	assert.Equal(t, 1, submits)
	assert.Equal(t, 1, waits)
}

func TestSolveFailedJobSurfacesError(t *testing.T) {
	failed := qtesting.NewJobFixture(domain.StatusFailed, 1024)
	failed.Error = "decoherence cascade"
	q := &stubQueue{final: failed}
	orch := newOrchestrator(q)

	problem := qtesting.NewProblemFixture(
		"find the prime factors of 15",
		map[string]interface{}{"number": 15},
	)

	_, err := orch.Solve(context.Background(), problem)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobFailed)
	assert.Contains(t, err.Error(), "decoherence cascade")
}

func TestSolveWaitErrorPropagates(t *testing.T) {
	waitErr := errors.New("queue shut down")
	q := &stubQueue{finalErr: waitErr}
	orch := newOrchestrator(q)

	problem := qtesting.NewProblemFixture(
		"search the database for a marked item",
		map[string]interface{}{"databaseSize": 64},
	)

	_, err := orch.Solve(context.Background(), problem)
	assert.ErrorIs(t, err, waitErr)
}

func TestSolveEmitsProblemSolvedEvent(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	em := events.NewManager(bus, zerolog.Nop())

	var mu sync.Mutex
	var seen []*events.Event
	defer bus.Subscribe(events.ProblemSolved, func(event *events.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event)
	})()

	orch := New(
		decomposer.New(),
		circuit.New(rand.New(rand.NewSource(1))),
		&stubQueue{},
		interpreter.New(nil, zerolog.Nop()),
		em,
		1024,
		zerolog.Nop(),
	)

	problem := qtesting.NewProblemFixture("say hello", map[string]interface{}{})
	_, err := orch.Solve(context.Background(), problem)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, problem.ID, seen[0].Data["problem_id"])
}
