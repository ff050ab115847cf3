package testing

import (
	"context"
	"sync"

	"github.com/quantalab/quanta/internal/domain"
)

// MockExecutor is a configurable quantum backend executor for tests
type MockExecutor struct {
	mu     sync.Mutex
	result *domain.QuantumJobResult
	err    error
	delay  func(ctx context.Context) error
	calls  []string
}

// NewMockExecutor creates a mock executor that completes every job with an
// even two-outcome distribution unless configured otherwise
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// SetResult fixes the result returned for every execution
func (m *MockExecutor) SetResult(result *domain.QuantumJobResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = result
}

// SetError makes every execution fail with the given error
func (m *MockExecutor) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetBlocking makes executions block until the provided function returns,
// typically used to hold a job in RUNNING while a test observes it
func (m *MockExecutor) SetBlocking(fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = fn
}

// Calls returns the job ids executed so far, in order
func (m *MockExecutor) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Execute implements the queue executor contract
func (m *MockExecutor) Execute(ctx context.Context, job *domain.QuantumJob) (*domain.QuantumJobResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, job.ID)
	result := m.result
	err := m.err
	delay := m.delay
	m.mu.Unlock()

	if delay != nil {
		if derr := delay(ctx); derr != nil {
			return nil, derr
		}
	}

	if err != nil {
		return nil, err
	}

	if result != nil {
		return result, nil
	}

	return NewResultFixture(job.Shots), nil
}

// MockBackendSelector returns a fixed backend name, or an error
type MockBackendSelector struct {
	mu      sync.Mutex
	backend string
	err     error
}

// NewMockBackendSelector creates a selector that always picks the given backend
func NewMockBackendSelector(backend string) *MockBackendSelector {
	return &MockBackendSelector{backend: backend}
}

// SetError makes every selection fail with the given error
func (m *MockBackendSelector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Select implements the queue backend selector contract
func (m *MockBackendSelector) Select(circuit domain.QuantumCircuit) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.backend, nil
}
