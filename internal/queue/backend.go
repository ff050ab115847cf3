package queue

import (
	"fmt"

	"github.com/quantalab/quanta/internal/config"
	"github.com/quantalab/quanta/internal/domain"
)

// BackendSelector decides which execution target a circuit is routed to.
// It is a pluggable strategy so real placement/cost logic can be substituted
// without touching the queue.
type BackendSelector interface {
	Select(circuit domain.QuantumCircuit) (string, error)
}

// CatalogSelector routes a circuit to the first catalog backend wide enough
// for it. With the default two-entry catalog this reduces to a single
// qubit-count threshold between a small device label and a large simulator.
// Circuits too wide for every entry fall back to the last simulator in the
// catalog: simulators trade time for width, so routing never rejects a job
// by width alone unless the catalog is hardware-only.
type CatalogSelector struct {
	catalog config.BackendCatalog
}

// NewCatalogSelector creates a selector over a backend catalog
func NewCatalogSelector(catalog config.BackendCatalog) *CatalogSelector {
	return &CatalogSelector{catalog: catalog}
}

// Select returns the first backend that fits the circuit width, or the
// last simulator entry when none does
func (s *CatalogSelector) Select(circuit domain.QuantumCircuit) (string, error) {
	fallback := ""
	for _, backend := range s.catalog.Backends {
		if circuit.Qubits <= backend.MaxQubits {
			return backend.Name, nil
		}
		if backend.Simulator {
			fallback = backend.Name
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("no backend can fit %d qubits", circuit.Qubits)
}
