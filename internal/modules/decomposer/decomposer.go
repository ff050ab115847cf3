// Package decomposer classifies incoming problems into classical and
// quantum-amenable parts using keyword heuristics over the description.
package decomposer

import (
	"math"
	"strings"

	"github.com/quantalab/quanta/internal/domain"
)

// Defaults substituted when the expected payload fields are absent or
// malformed. Substitution instead of failure is the documented contract:
// decomposition never raises, worst case it mis-classifies.
const (
	DefaultCityCount    = 4
	DefaultNumber       = 15
	DefaultDatabaseSize = 100
	DefaultSystemSize   = 4
)

// keywordPattern maps a problem type to the substrings that indicate it.
// Patterns are tested in fixed priority order; the first match wins.
type keywordPattern struct {
	problemType domain.ProblemType
	cues        []string
}

var patterns = []keywordPattern{
	{domain.ProblemOptimization, []string{"optimiz", "optimis", "optimal", "minimiz", "maximiz", "shortest path", "traveling salesman", "tsp", "schedul", "knapsack"}},
	{domain.ProblemFactorization, []string{"factor", "prime", "semiprime", "rsa"}},
	{domain.ProblemSearch, []string{"search", "grover", "database", "unstructured", "lookup"}},
	{domain.ProblemSimulation, []string{"simulat", "molecul", "hamiltonian", "chemistry", "quantum system"}},
}

// Decomposer splits hybrid problems. It is stateless; Decompose is a pure
// function of the problem.
type Decomposer struct{}

// New creates a new decomposer
func New() *Decomposer {
	return &Decomposer{}
}

// Decompose classifies the problem description and estimates the quantum
// resource requirement. When no quantum-indicative pattern matches, the
// returned QuantumPart is nil and the pipeline stays purely classical.
func (d *Decomposer) Decompose(problem domain.HybridProblem) domain.DecomposedProblem {
	decomposed := domain.DecomposedProblem{
		OriginalProblemID: problem.ID,
		ClassicalPart:     problem.Data,
	}

	description := strings.ToLower(problem.Description)

	for _, p := range patterns {
		if matchesAny(description, p.cues) {
			decomposed.QuantumPart = &domain.QuantumSubProblem{
				Type:           p.problemType,
				Data:           problem.Data,
				RequiredQubits: estimateQubits(p.problemType, problem.Data),
			}
			break
		}
	}

	return decomposed
}

func matchesAny(description string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(description, cue) {
			return true
		}
	}
	return false
}

// estimateQubits runs the type-specific resource estimator over the opaque
// problem payload, substituting defaults for missing fields.
func estimateQubits(problemType domain.ProblemType, data map[string]interface{}) int {
	switch problemType {
	case domain.ProblemOptimization:
		// One qubit per city in the route encoding
		return intFromList(data, "cities", DefaultCityCount)

	case domain.ProblemFactorization:
		// Shor-style register sizing: 2 x bit length of N
		n := intFromField(data, "number", DefaultNumber)
		if n < 2 {
			n = DefaultNumber
		}
		return 2 * bitLength(n)

	case domain.ProblemSearch:
		// ceil(log2(databaseSize)) index qubits
		size := intFromField(data, "databaseSize", DefaultDatabaseSize)
		if size < 2 {
			size = DefaultDatabaseSize
		}
		return int(math.Ceil(math.Log2(float64(size))))

	case domain.ProblemSimulation:
		size := intFromField(data, "systemSize", DefaultSystemSize)
		if size < 1 {
			size = DefaultSystemSize
		}
		return size
	}

	return 0
}

// bitLength returns floor(log2(n)) + 1 for n >= 1
func bitLength(n int) int {
	bits := 0
	for n > 0 {
		bits++
		n >>= 1
	}
	return bits
}

// intFromField reads a numeric payload field, tolerating the float64 values
// JSON decoding produces. Missing or non-numeric fields yield the default.
func intFromField(data map[string]interface{}, key string, defaultValue int) int {
	if data == nil {
		return defaultValue
	}

	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return defaultValue
	}
}

// intFromList returns the length of a list payload field, or the default
// when the field is absent or not a list.
func intFromList(data map[string]interface{}, key string, defaultValue int) int {
	if data == nil {
		return defaultValue
	}

	if list, ok := data[key].([]interface{}); ok && len(list) > 0 {
		return len(list)
	}
	return defaultValue
}
