package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend describes a named execution target a job can be routed to
type Backend struct {
	Name      string `yaml:"name"`
	MaxQubits int    `yaml:"max_qubits"`
	Simulator bool   `yaml:"simulator"`
}

// BackendCatalog is the ordered list of available backends. Order matters:
// selection picks the first backend that fits the circuit width.
type BackendCatalog struct {
	Backends []Backend `yaml:"backends"`
}

// DefaultBackendCatalog is the built-in two-target routing: small circuits
// go to the hardware label, everything else to the large simulator. The
// simulator's width cap is advisory; selection falls back to it for wider
// circuits rather than rejecting them.
func DefaultBackendCatalog() BackendCatalog {
	return BackendCatalog{
		Backends: []Backend{
			{Name: "ibmq_manila", MaxQubits: 5, Simulator: false},
			{Name: "qasm_simulator", MaxQubits: 32, Simulator: true},
		},
	}
}

// LoadBackendCatalog reads a backend catalog from a YAML file.
// An empty path returns the default catalog.
func LoadBackendCatalog(path string) (BackendCatalog, error) {
	if path == "" {
		return DefaultBackendCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return BackendCatalog{}, fmt.Errorf("failed to read backends file: %w", err)
	}

	var catalog BackendCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return BackendCatalog{}, fmt.Errorf("failed to parse backends file: %w", err)
	}

	if err := catalog.Validate(); err != nil {
		return BackendCatalog{}, err
	}

	return catalog, nil
}

// Validate checks the catalog for usability
func (c BackendCatalog) Validate() error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("backend catalog is empty")
	}
	seen := make(map[string]bool, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("backend with empty name")
		}
		if b.MaxQubits <= 0 {
			return fmt.Errorf("backend %s: max_qubits must be positive, got %d", b.Name, b.MaxQubits)
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate backend name: %s", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}
