package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBackendsFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backends.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestDefaultBackendCatalog(t *testing.T) {
	catalog := DefaultBackendCatalog()
	require.NoError(t, catalog.Validate())
	require.Len(t, catalog.Backends, 2)

	assert.Equal(t, "ibmq_manila", catalog.Backends[0].Name)
	assert.Equal(t, 5, catalog.Backends[0].MaxQubits)
	assert.False(t, catalog.Backends[0].Simulator)

	assert.Equal(t, "qasm_simulator", catalog.Backends[1].Name)
	assert.Equal(t, 32, catalog.Backends[1].MaxQubits)
	assert.True(t, catalog.Backends[1].Simulator)
}

func TestLoadBackendCatalogFromYAML(t *testing.T) {
	path := writeBackendsFile(t, `
backends:
  - name: local_sim
    max_qubits: 24
    simulator: true
  - name: rig_alpha
    max_qubits: 7
    simulator: false
`)

	catalog, err := LoadBackendCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog.Backends, 2)
	assert.Equal(t, "local_sim", catalog.Backends[0].Name)
	assert.Equal(t, 24, catalog.Backends[0].MaxQubits)
	assert.Equal(t, "rig_alpha", catalog.Backends[1].Name)
}

func TestLoadBackendCatalogEmptyPathUsesDefaults(t *testing.T) {
	catalog, err := LoadBackendCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBackendCatalog(), catalog)
}

func TestLoadBackendCatalogErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadBackendCatalog(filepath.Join(t.TempDir(), "nope.yml"))
		assert.ErrorContains(t, err, "failed to read backends file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeBackendsFile(t, "backends: [unclosed")
		_, err := LoadBackendCatalog(path)
		assert.ErrorContains(t, err, "failed to parse backends file")
	})

	t.Run("empty catalog", func(t *testing.T) {
		path := writeBackendsFile(t, "backends: []")
		_, err := LoadBackendCatalog(path)
		assert.ErrorContains(t, err, "backend catalog is empty")
	})

	t.Run("duplicate names", func(t *testing.T) {
		path := writeBackendsFile(t, `
backends:
  - name: sim
    max_qubits: 8
    simulator: true
  - name: sim
    max_qubits: 16
    simulator: true
`)
		_, err := LoadBackendCatalog(path)
		assert.ErrorContains(t, err, "duplicate backend name")
	})

	t.Run("non-positive qubits", func(t *testing.T) {
		path := writeBackendsFile(t, `
backends:
  - name: sim
    max_qubits: 0
    simulator: true
`)
		_, err := LoadBackendCatalog(path)
		assert.ErrorContains(t, err, "max_qubits must be positive")
	})
}
