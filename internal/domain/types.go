// Package domain contains the core types of the hybrid quantum-classical
// pipeline. The domain layer is pure: no infrastructure dependencies.
package domain

import "time"

// ProblemSource identifies where a problem originated
type ProblemSource string

const (
	SourceAGICore    ProblemSource = "AGI_CORE"
	SourceUserDirect ProblemSource = "USER_DIRECT"
)

// ProblemType classifies a quantum subproblem
type ProblemType string

const (
	ProblemOptimization  ProblemType = "OPTIMIZATION"
	ProblemFactorization ProblemType = "FACTORIZATION"
	ProblemSearch        ProblemType = "SEARCH"
	ProblemSimulation    ProblemType = "SIMULATION"
)

// ProblemMetadata carries request provenance
type ProblemMetadata struct {
	Source    ProblemSource `json:"source"`
	AGITaskID string        `json:"agiTaskId,omitempty"`
}

// HybridProblem is an incoming problem to solve. Created per request,
// immutable, never persisted beyond the request lifetime.
type HybridProblem struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data"`
	Metadata    ProblemMetadata        `json:"metadata"`
}

// QuantumSubProblem is the quantum-amenable part of a decomposed problem
type QuantumSubProblem struct {
	Type           ProblemType            `json:"type"`
	Data           map[string]interface{} `json:"data"`
	RequiredQubits int                    `json:"requiredQubits"`
}

// DecomposedProblem is the classical/quantum split of a HybridProblem.
// QuantumPart is nil when no quantum-indicative pattern was detected;
// that nil is the branch point for the whole pipeline.
type DecomposedProblem struct {
	OriginalProblemID string                 `json:"originalProblemId"`
	ClassicalPart     map[string]interface{} `json:"classicalPart"`
	QuantumPart       *QuantumSubProblem     `json:"quantumPart,omitempty"`
}

// GateInstruction is one gate application in a circuit
type GateInstruction struct {
	Gate    string    `json:"gate" msgpack:"gate"`
	Targets []int     `json:"targets" msgpack:"targets"`
	Params  []float64 `json:"params,omitempty" msgpack:"params,omitempty"`
}

// Measurement maps a qubit to a classical bit
type Measurement struct {
	Qubit int `json:"qubit" msgpack:"qubit"`
	Bit   int `json:"bit" msgpack:"bit"`
}

// QuantumCircuit is a declarative circuit description. Fully determined by
// the generation procedure for its subproblem; immutable once generated.
type QuantumCircuit struct {
	Qubits       int               `json:"qubits" msgpack:"qubits"`
	Bits         int               `json:"bits" msgpack:"bits"`
	Gates        []GateInstruction `json:"gates" msgpack:"gates"`
	Measurements []Measurement     `json:"measurements" msgpack:"measurements"`
}

// GateCount returns the number of gate applications in the circuit
func (c QuantumCircuit) GateCount() int {
	return len(c.Gates)
}

// JobStatus is a quantum job lifecycle state
type JobStatus string

const (
	StatusQueued    JobStatus = "QUEUED"
	StatusRunning   JobStatus = "RUNNING"
	StatusCompleted JobStatus = "COMPLETED"
	StatusFailed    JobStatus = "FAILED"
)

// IsTerminal reports whether the status admits no further transitions
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// QuantumJobResult is produced once, atomically, when a job completes.
// Counts values sum exactly to the job's shot count.
type QuantumJobResult struct {
	Counts        map[string]int `json:"counts" msgpack:"counts"`
	Memory        []string       `json:"memory" msgpack:"memory"`
	ExecutionTime float64        `json:"executionTime" msgpack:"execution_time"` // milliseconds
}

// QuantumJob is the central state-machine entity. It is owned by the job
// queue; only the worker handling the job may mutate it, and never after a
// terminal state is reached.
//
// Invariants: Result is present iff Status == COMPLETED; Error is non-empty
// iff Status == FAILED.
type QuantumJob struct {
	ID          string            `json:"id" msgpack:"id"`
	ProblemID   string            `json:"problemId" msgpack:"problem_id"`
	ProblemType ProblemType       `json:"problemType" msgpack:"problem_type"`
	Circuit     QuantumCircuit    `json:"circuit" msgpack:"circuit"`
	Shots       int               `json:"shots" msgpack:"shots"`
	Status      JobStatus         `json:"status" msgpack:"status"`
	Backend     string            `json:"backend" msgpack:"backend"`
	Result      *QuantumJobResult `json:"result,omitempty" msgpack:"result,omitempty"`
	Error       string            `json:"error,omitempty" msgpack:"error,omitempty"`
	CreatedAt   time.Time         `json:"createdAt" msgpack:"created_at"`
	CompletedAt *time.Time        `json:"completedAt,omitempty" msgpack:"completed_at,omitempty"`
}

// ClassicalResult is the classical interpretation of a completed job.
// Stateless, not persisted.
type ClassicalResult struct {
	Solution     interface{}    `json:"solution"`
	Confidence   float64        `json:"confidence"`
	Entropy      float64        `json:"entropy"`
	Distribution map[string]int `json:"distribution"`
}

// HybridSolution is the assembled response of the full pipeline
type HybridSolution struct {
	ProblemID          string                 `json:"problemId"`
	ClassicalSolution  map[string]interface{} `json:"classicalSolution"`
	QuantumSolution    *ClassicalResult       `json:"quantumSolution,omitempty"`
	IsQuantumAdvantage bool                   `json:"isQuantumAdvantage"`
	ExecutionTime      float64                `json:"executionTime"` // milliseconds, wall clock
}
