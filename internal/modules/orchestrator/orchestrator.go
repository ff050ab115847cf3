// Package orchestrator is the top-level façade of the hybrid pipeline:
// decompose, generate, submit and await, interpret, assemble.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantalab/quanta/internal/domain"
	"github.com/quantalab/quanta/internal/events"
	"github.com/quantalab/quanta/internal/modules/circuit"
	"github.com/quantalab/quanta/internal/modules/decomposer"
	"github.com/quantalab/quanta/internal/modules/interpreter"
	"github.com/quantalab/quanta/internal/queue"
)

// ErrJobFailed wraps a job's FAILED state into an error for the awaiting
// request. The job record itself stays intact in the queue.
var ErrJobFailed = errors.New("quantum job failed")

// JobQueue is the slice of the queue service the orchestrator needs
type JobQueue interface {
	Submit(ctx context.Context, c domain.QuantumCircuit, problemType domain.ProblemType, shots int, problemID string) (*domain.QuantumJob, error)
	WaitForJob(ctx context.Context, jobID string) (*domain.QuantumJob, error)
}

var _ JobQueue = (*queue.Service)(nil)

// Orchestrator runs the full hybrid pipeline for a problem
type Orchestrator struct {
	decomposer   *decomposer.Decomposer
	generator    *circuit.Generator
	queue        JobQueue
	interpreter  *interpreter.Interpreter
	em           *events.Manager
	defaultShots int
	log          zerolog.Logger
}

// New creates the orchestrator façade over its pipeline stages
func New(dec *decomposer.Decomposer, gen *circuit.Generator, q JobQueue, interp *interpreter.Interpreter, em *events.Manager, defaultShots int, log zerolog.Logger) *Orchestrator {
	if defaultShots <= 0 {
		defaultShots = 1024
	}
	return &Orchestrator{
		decomposer:   dec,
		generator:    gen,
		queue:        q,
		interpreter:  interp,
		em:           em,
		defaultShots: defaultShots,
		log:          log.With().Str("component", "orchestrator").Logger(),
	}
}

// Solve runs the pipeline end to end. Problems without a quantum part take
// the classical-only fast path and never touch the generator or the queue.
// Any stage failure aborts the whole request; there is no partial-result
// fallback.
func (o *Orchestrator) Solve(ctx context.Context, problem domain.HybridProblem) (*domain.HybridSolution, error) {
	start := time.Now()

	decomposed := o.decomposer.Decompose(problem)

	if decomposed.QuantumPart == nil {
		o.log.Debug().
			Str("problem_id", problem.ID).
			Msg("No quantum part detected, classical-only solution")

		solution := &domain.HybridSolution{
			ProblemID:          problem.ID,
			ClassicalSolution:  classicalSolution(decomposed),
			IsQuantumAdvantage: false,
			ExecutionTime:      float64(time.Since(start).Microseconds()) / 1000.0,
		}
		o.emitSolved(problem.ID, solution)
		return solution, nil
	}

	sub := *decomposed.QuantumPart

	qc, err := o.generator.Generate(sub)
	if err != nil {
		return nil, fmt.Errorf("circuit generation for problem %s: %w", problem.ID, err)
	}

	job, err := o.queue.Submit(ctx, qc, sub.Type, o.defaultShots, problem.ID)
	if err != nil {
		return nil, fmt.Errorf("job submission for problem %s: %w", problem.ID, err)
	}

	o.log.Info().
		Str("problem_id", problem.ID).
		Str("job_id", job.ID).
		Str("type", string(sub.Type)).
		Int("qubits", qc.Qubits).
		Msg("Quantum subproblem submitted")

	final, err := o.queue.WaitForJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("awaiting job %s: %w", job.ID, err)
	}

	if final.Status == domain.StatusFailed {
		return nil, fmt.Errorf("%w: job %s: %s", ErrJobFailed, final.ID, final.Error)
	}

	quantum, err := o.interpreter.Interpret(final)
	if err != nil {
		return nil, fmt.Errorf("interpreting job %s: %w", final.ID, err)
	}

	solution := &domain.HybridSolution{
		ProblemID:          problem.ID,
		ClassicalSolution:  classicalSolution(decomposed),
		QuantumSolution:    quantum,
		IsQuantumAdvantage: true,
		ExecutionTime:      float64(time.Since(start).Microseconds()) / 1000.0,
	}
	o.emitSolved(problem.ID, solution)
	return solution, nil
}

func (o *Orchestrator) emitSolved(problemID string, solution *domain.HybridSolution) {
	if o.em == nil {
		return
	}
	o.em.EmitTyped(events.ProblemSolved, "orchestrator", &events.ProblemSolvedData{
		ProblemID:          problemID,
		IsQuantumAdvantage: solution.IsQuantumAdvantage,
		ExecutionTime:      solution.ExecutionTime,
	})
}

// classicalSolution wraps the classical part of the decomposition into the
// response payload
func classicalSolution(decomposed domain.DecomposedProblem) map[string]interface{} {
	return map[string]interface{}{
		"processed": true,
		"input":     decomposed.ClassicalPart,
	}
}
