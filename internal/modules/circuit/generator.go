// Package circuit produces declarative circuit descriptions for typed
// quantum subproblems.
package circuit

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/quantalab/quanta/internal/domain"
)

// ErrUnsupportedProblemType is returned when a subproblem type is not one of
// the known variants. This is a defensive branch: a correctly decomposed
// problem never reaches it.
var ErrUnsupportedProblemType = errors.New("unsupported problem type")

// Parameterized layers in the optimization ansatz
const optimizationLayers = 2

// Generator builds circuits. Rotation angles are drawn from the injected
// random source so tests can seed it and assert exact gate sequences.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a generator with the given random source
func New(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate produces the circuit for a subproblem. The result is fully
// determined by the subproblem and the state of the random source.
func (g *Generator) Generate(sub domain.QuantumSubProblem) (domain.QuantumCircuit, error) {
	switch sub.Type {
	case domain.ProblemOptimization:
		return g.optimizationCircuit(sub.RequiredQubits), nil
	case domain.ProblemFactorization:
		return g.factorizationCircuit(sub.RequiredQubits), nil
	case domain.ProblemSearch:
		return g.searchCircuit(sub.RequiredQubits), nil
	case domain.ProblemSimulation:
		return g.simulationCircuit(sub.RequiredQubits), nil
	default:
		return domain.QuantumCircuit{}, fmt.Errorf("%w: %s", ErrUnsupportedProblemType, sub.Type)
	}
}

// optimizationCircuit builds a QAOA-shaped ansatz: uniform superposition,
// then alternating problem layers (entangling rotations over a ring
// topology) and single-qubit mixer layers. All qubits are measured.
func (g *Generator) optimizationCircuit(qubits int) domain.QuantumCircuit {
	c := domain.QuantumCircuit{Qubits: qubits, Bits: qubits}

	for q := 0; q < qubits; q++ {
		c.Gates = append(c.Gates, domain.GateInstruction{Gate: "h", Targets: []int{q}})
	}

	for layer := 0; layer < optimizationLayers; layer++ {
		// Problem layer: ZZ interactions around the ring
		for q := 0; q < qubits; q++ {
			next := (q + 1) % qubits
			angle := g.angle(2 * math.Pi)
			c.Gates = append(c.Gates,
				domain.GateInstruction{Gate: "cx", Targets: []int{q, next}},
				domain.GateInstruction{Gate: "rz", Targets: []int{next}, Params: []float64{angle}},
				domain.GateInstruction{Gate: "cx", Targets: []int{q, next}},
			)
		}

		// Mixer layer
		for q := 0; q < qubits; q++ {
			c.Gates = append(c.Gates, domain.GateInstruction{
				Gate:    "rx",
				Targets: []int{q},
				Params:  []float64{g.angle(math.Pi)},
			})
		}
	}

	c.Measurements = measureAll(qubits)
	return c
}

// factorizationCircuit emits a single symbolic phase-estimation block over
// half the register. The classical post-processing (continued fractions) is
// not implemented, so the circuit carries zero measurements.
func (g *Generator) factorizationCircuit(qubits int) domain.QuantumCircuit {
	half := qubits / 2
	if half < 1 {
		half = 1
	}

	targets := make([]int, half)
	for i := range targets {
		targets[i] = i
	}

	return domain.QuantumCircuit{
		Qubits: qubits,
		Bits:   qubits,
		Gates: []domain.GateInstruction{
			{Gate: "qpe", Targets: targets},
		},
	}
}

// searchCircuit builds a Grover-shaped circuit: uniform superposition
// followed by floor(pi/4 * sqrt(2^n)) amplitude-amplification iterations,
// each an oracle mark plus the standard diffusion sandwich.
func (g *Generator) searchCircuit(qubits int) domain.QuantumCircuit {
	c := domain.QuantumCircuit{Qubits: qubits, Bits: qubits}

	for q := 0; q < qubits; q++ {
		c.Gates = append(c.Gates, domain.GateInstruction{Gate: "h", Targets: []int{q}})
	}

	all := make([]int, qubits)
	for i := range all {
		all[i] = i
	}

	iterations := int(math.Floor(math.Pi / 4 * math.Sqrt(math.Pow(2, float64(qubits)))))
	for i := 0; i < iterations; i++ {
		// Oracle mark with a randomized phase
		c.Gates = append(c.Gates, domain.GateInstruction{
			Gate:    "oracle",
			Targets: all,
			Params:  []float64{g.angle(math.Pi)},
		})

		// Diffusion: H / X / multi-controlled-Z / X / H
		for q := 0; q < qubits; q++ {
			c.Gates = append(c.Gates, domain.GateInstruction{Gate: "h", Targets: []int{q}})
		}
		for q := 0; q < qubits; q++ {
			c.Gates = append(c.Gates, domain.GateInstruction{Gate: "x", Targets: []int{q}})
		}
		c.Gates = append(c.Gates, domain.GateInstruction{Gate: "mcz", Targets: all})
		for q := 0; q < qubits; q++ {
			c.Gates = append(c.Gates, domain.GateInstruction{Gate: "x", Targets: []int{q}})
		}
		for q := 0; q < qubits; q++ {
			c.Gates = append(c.Gates, domain.GateInstruction{Gate: "h", Targets: []int{q}})
		}
	}

	c.Measurements = measureAll(qubits)
	return c
}

// simulationCircuit emits a single symbolic ansatz block. The classical
// variational outer loop is not implemented, so the circuit carries zero
// measurements.
func (g *Generator) simulationCircuit(qubits int) domain.QuantumCircuit {
	all := make([]int, qubits)
	for i := range all {
		all[i] = i
	}

	return domain.QuantumCircuit{
		Qubits: qubits,
		Bits:   qubits,
		Gates: []domain.GateInstruction{
			{Gate: "ansatz", Targets: all},
		},
	}
}

func (g *Generator) angle(max float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() * max
}

func measureAll(qubits int) []domain.Measurement {
	measurements := make([]domain.Measurement, qubits)
	for q := 0; q < qubits; q++ {
		measurements[q] = domain.Measurement{Qubit: q, Bit: q}
	}
	return measurements
}
