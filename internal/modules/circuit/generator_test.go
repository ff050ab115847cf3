package circuit

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantalab/quanta/internal/domain"
)

func newTestGenerator() *Generator {
	return New(rand.New(rand.NewSource(42)))
}

func TestGenerate_Optimization(t *testing.T) {
	g := newTestGenerator()

	c, err := g.Generate(domain.QuantumSubProblem{
		Type:           domain.ProblemOptimization,
		RequiredQubits: 4,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, c.Qubits)
	assert.Equal(t, 4, c.Bits)
	assert.Len(t, c.Measurements, 4)

	// Layout: 4 Hadamards, then per layer 4*(cx,rz,cx) + 4 rx
	expectedGates := 4 + optimizationLayers*(4*3+4)
	assert.Len(t, c.Gates, expectedGates)

	// Uniform superposition prefix
	for q := 0; q < 4; q++ {
		assert.Equal(t, "h", c.Gates[q].Gate)
		assert.Equal(t, []int{q}, c.Gates[q].Targets)
	}

	// First entangling triple targets the ring pair (0,1)
	assert.Equal(t, "cx", c.Gates[4].Gate)
	assert.Equal(t, []int{0, 1}, c.Gates[4].Targets)
	assert.Equal(t, "rz", c.Gates[5].Gate)
	require.Len(t, c.Gates[5].Params, 1)
	assert.GreaterOrEqual(t, c.Gates[5].Params[0], 0.0)
	assert.Less(t, c.Gates[5].Params[0], 2*math.Pi)
}

func TestGenerate_OptimizationDeterministicWithSeed(t *testing.T) {
	sub := domain.QuantumSubProblem{Type: domain.ProblemOptimization, RequiredQubits: 3}

	c1, err := New(rand.New(rand.NewSource(7))).Generate(sub)
	require.NoError(t, err)
	c2, err := New(rand.New(rand.NewSource(7))).Generate(sub)
	require.NoError(t, err)

	assert.Equal(t, c1, c2)
}

func TestGenerate_Factorization(t *testing.T) {
	g := newTestGenerator()

	c, err := g.Generate(domain.QuantumSubProblem{
		Type:           domain.ProblemFactorization,
		RequiredQubits: 8,
	})
	require.NoError(t, err)

	assert.Equal(t, 8, c.Qubits)
	require.Len(t, c.Gates, 1)
	assert.Equal(t, "qpe", c.Gates[0].Gate)
	assert.Equal(t, []int{0, 1, 2, 3}, c.Gates[0].Targets)
	// Classical post-processing is not implemented: no measurements
	assert.Empty(t, c.Measurements)
}

func TestGenerate_Search(t *testing.T) {
	g := newTestGenerator()

	c, err := g.Generate(domain.QuantumSubProblem{
		Type:           domain.ProblemSearch,
		RequiredQubits: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, c.Qubits)
	assert.Len(t, c.Measurements, 3)

	// floor(pi/4 * sqrt(8)) = 2 iterations
	iterations := 2
	// 3 Hadamards + per iteration: oracle + 3h + 3x + mcz + 3x + 3h
	expectedGates := 3 + iterations*(1+3+3+1+3+3)
	assert.Len(t, c.Gates, expectedGates)

	// First iteration starts with the oracle
	assert.Equal(t, "oracle", c.Gates[3].Gate)
	assert.Equal(t, []int{0, 1, 2}, c.Gates[3].Targets)
}

func TestGenerate_Simulation(t *testing.T) {
	g := newTestGenerator()

	c, err := g.Generate(domain.QuantumSubProblem{
		Type:           domain.ProblemSimulation,
		RequiredQubits: 4,
	})
	require.NoError(t, err)

	require.Len(t, c.Gates, 1)
	assert.Equal(t, "ansatz", c.Gates[0].Gate)
	assert.Equal(t, []int{0, 1, 2, 3}, c.Gates[0].Targets)
	assert.Empty(t, c.Measurements)
}

func TestGenerate_UnsupportedType(t *testing.T) {
	g := newTestGenerator()

	_, err := g.Generate(domain.QuantumSubProblem{
		Type:           domain.ProblemType("TELEPORTATION"),
		RequiredQubits: 2,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedProblemType)
}
