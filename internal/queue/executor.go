package queue

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/quantalab/quanta/internal/domain"
)

// Executor runs a job's circuit and produces its measurement histogram.
// Implementations must be safe for concurrent use by multiple workers.
type Executor interface {
	Execute(ctx context.Context, job *domain.QuantumJob) (*domain.QuantumJobResult, error)
}

// LocalSimulator is the stand-in execution backend: for each shot, every
// output bit is drawn independently and uniformly at random. This is not a
// quantum-state simulation; it only preserves the shape of the result
// (counts summing to shots, per-shot memory). A synthetic delay proportional
// to circuit size models execution latency.
type LocalSimulator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	simDelay bool
}

// NewLocalSimulator creates a simulator with latency modelling enabled
func NewLocalSimulator(rng *rand.Rand) *LocalSimulator {
	return &LocalSimulator{rng: rng, simDelay: true}
}

// NewInstantSimulator creates a simulator without the synthetic delay.
// This is primarily used for testing.
func NewInstantSimulator(rng *rand.Rand) *LocalSimulator {
	return &LocalSimulator{rng: rng}
}

// Execute runs the job. The context is honored during the synthetic delay;
// cancellation surfaces as an execution failure.
func (s *LocalSimulator) Execute(ctx context.Context, job *domain.QuantumJob) (*domain.QuantumJobResult, error) {
	if job.Shots <= 0 {
		return nil, fmt.Errorf("shots must be positive, got %d", job.Shots)
	}

	start := time.Now()

	if s.simDelay {
		// qubits*10 + gates*2 ms: latency grows with circuit size
		delay := time.Duration(job.Circuit.Qubits*10+job.Circuit.GateCount()*2) * time.Millisecond
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
		}
	}

	counts := make(map[string]int)
	memory := make([]string, 0, job.Shots)

	for shot := 0; shot < job.Shots; shot++ {
		bitstring := s.drawBitstring(job.Circuit.Bits)
		counts[bitstring]++
		memory = append(memory, bitstring)
	}

	return &domain.QuantumJobResult{
		Counts:        counts,
		Memory:        memory,
		ExecutionTime: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

func (s *LocalSimulator) drawBitstring(bits int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	sb.Grow(bits)
	for i := 0; i < bits; i++ {
		if s.rng.Intn(2) == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
