// Package interpreter turns a completed job's measurement histogram into a
// problem-specific classical answer.
package interpreter

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/quantalab/quanta/internal/domain"
)

// ErrIncompleteJob is returned when interpretation is attempted on a job
// that is not COMPLETED or carries no result. This is a hard precondition:
// correct orchestration never hits it.
var ErrIncompleteJob = errors.New("cannot interpret incomplete job")

// Mitigator adjusts a raw counts histogram before interpretation. The
// default implementation is the identity; a calibrated readout-error model
// can be substituted without touching the interpreter.
type Mitigator interface {
	Mitigate(counts map[string]int) map[string]int
}

// IdentityMitigator passes counts through unchanged
type IdentityMitigator struct{}

// Mitigate returns the counts as-is
func (IdentityMitigator) Mitigate(counts map[string]int) map[string]int {
	return counts
}

// Interpreter maps measurement outcomes back into classical solutions
type Interpreter struct {
	mitigator Mitigator
	log       zerolog.Logger
}

// New creates an interpreter with the given mitigation hook.
// A nil mitigator means identity.
func New(mitigator Mitigator, log zerolog.Logger) *Interpreter {
	if mitigator == nil {
		mitigator = IdentityMitigator{}
	}
	return &Interpreter{
		mitigator: mitigator,
		log:       log.With().Str("component", "interpreter").Logger(),
	}
}

// Interpret converts a COMPLETED job's counts into a ClassicalResult.
// Fails with ErrIncompleteJob when the job is not COMPLETED or has no
// result.
func (i *Interpreter) Interpret(job *domain.QuantumJob) (*domain.ClassicalResult, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: nil job", ErrIncompleteJob)
	}
	if job.Status != domain.StatusCompleted || job.Result == nil {
		return nil, fmt.Errorf("%w: job %s has status %s", ErrIncompleteJob, job.ID, job.Status)
	}

	counts := i.mitigator.Mitigate(job.Result.Counts)
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: job %s has an empty counts histogram", ErrIncompleteJob, job.ID)
	}

	outcome, count := mostLikelyOutcome(counts)
	total := 0
	for _, c := range counts {
		total += c
	}

	solution := mapToSolution(job.ProblemType, outcome)
	confidence := float64(count) / float64(total)

	result := &domain.ClassicalResult{
		Solution:     solution,
		Confidence:   confidence,
		Entropy:      outcomeEntropy(counts, total),
		Distribution: counts,
	}

	i.log.Debug().
		Str("job_id", job.ID).
		Str("outcome", outcome).
		Float64("confidence", confidence).
		Msg("Interpreted job result")

	return result, nil
}

// mostLikelyOutcome picks the bitstring with the greatest count. Ties are
// broken toward the lexicographically smallest bitstring so the choice is
// stable regardless of map iteration order.
func mostLikelyOutcome(counts map[string]int) (string, int) {
	best := ""
	bestCount := -1
	for outcome, count := range counts {
		if count > bestCount || (count == bestCount && outcome < best) {
			best = outcome
			bestCount = count
		}
	}
	return best, bestCount
}

// mapToSolution converts the winning bitstring into a structured answer
// keyed by the problem type carried on the job.
func mapToSolution(problemType domain.ProblemType, outcome string) interface{} {
	switch problemType {
	case domain.ProblemOptimization:
		// Each bit is one step of the route
		path := make([]int, len(outcome))
		for i, bit := range outcome {
			if bit == '1' {
				path[i] = 1
			}
		}
		return map[string]interface{}{"path": path}
	case domain.ProblemFactorization:
		period, err := strconv.ParseInt(outcome, 2, 64)
		if err != nil {
			return map[string]interface{}{"rawOutcome": outcome}
		}
		return map[string]interface{}{"period": int(period)}
	default:
		return map[string]interface{}{"rawOutcome": outcome}
	}
}

// outcomeEntropy is the Shannon entropy (bits) of the outcome distribution;
// 0 for a deterministic histogram, qubits for a uniform one.
func outcomeEntropy(counts map[string]int, total int) float64 {
	if total <= 0 {
		return 0
	}
	probs := make([]float64, 0, len(counts))
	for _, count := range counts {
		probs = append(probs, float64(count)/float64(total))
	}
	return stat.Entropy(probs) / math.Ln2
}
