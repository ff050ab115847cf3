package testing

import (
	"time"

	"github.com/google/uuid"

	"github.com/quantalab/quanta/internal/domain"
)

// NewCircuitFixture returns a small measured circuit for use in tests
func NewCircuitFixture(qubits int) domain.QuantumCircuit {
	circuit := domain.QuantumCircuit{
		Qubits: qubits,
		Gates:  make([]domain.GateInstruction, 0, 2*qubits),
	}
	for q := 0; q < qubits; q++ {
		circuit.Gates = append(circuit.Gates, domain.GateInstruction{
			Gate:    "h",
			Targets: []int{q},
		})
	}
	for q := 0; q < qubits-1; q++ {
		circuit.Gates = append(circuit.Gates, domain.GateInstruction{
			Gate:    "cx",
			Targets: []int{q, q + 1},
		})
	}
	for q := 0; q < qubits; q++ {
		circuit.Measurements = append(circuit.Measurements, domain.Measurement{
			Qubit: q,
			Bit:   q,
		})
	}
	return circuit
}

// NewJobFixture returns a job in the given state. Terminal states carry a
// consistent result or error so invariant-sensitive code can be tested
// against realistic records.
func NewJobFixture(status domain.JobStatus, shots int) *domain.QuantumJob {
	job := &domain.QuantumJob{
		ID:          uuid.New().String(),
		ProblemID:   uuid.New().String(),
		ProblemType: domain.ProblemOptimization,
		Circuit:     NewCircuitFixture(3),
		Shots:       shots,
		Status:      status,
		Backend:     "qasm_simulator",
		CreatedAt:   time.Now().UTC().Add(-time.Minute),
	}

	switch status {
	case domain.StatusCompleted:
		now := time.Now().UTC()
		job.CompletedAt = &now
		job.Result = NewResultFixture(shots)
	case domain.StatusFailed:
		now := time.Now().UTC()
		job.CompletedAt = &now
		job.Error = "backend rejected circuit"
	}

	return job
}

// NewResultFixture returns a two-outcome measurement result whose counts
// sum to shots
func NewResultFixture(shots int) *domain.QuantumJobResult {
	half := shots / 2
	return &domain.QuantumJobResult{
		Counts: map[string]int{
			"000": shots - half,
			"111": half,
		},
		Memory:        []string{"000", "111"},
		ExecutionTime: 42.0,
	}
}

// NewProblemFixture returns a hybrid problem with the given description
func NewProblemFixture(description string, data map[string]interface{}) domain.HybridProblem {
	return domain.HybridProblem{
		ID:          uuid.New().String(),
		Description: description,
		Data:        data,
	}
}
