package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUANTA_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, 1024, cfg.DefaultShots)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 2*time.Minute, cfg.WaitTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JobRetention)
	assert.False(t, cfg.Archive.Enabled)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("QUANTA_DATA_DIR", t.TempDir())
	t.Setenv("QUANTA_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("QUANTA_DEFAULT_SHOTS", "4096")
	t.Setenv("QUANTA_WORKERS", "8")
	t.Setenv("QUANTA_WAIT_TIMEOUT", "30s")
	t.Setenv("QUANTA_JOB_RETENTION", "72h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 4096, cfg.DefaultShots)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 30*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 72*time.Hour, cfg.JobRetention)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero shots", "QUANTA_DEFAULT_SHOTS", "0"},
		{"negative workers", "QUANTA_WORKERS", "-2"},
		{"negative wait timeout", "QUANTA_WAIT_TIMEOUT", "-5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("QUANTA_DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestArchiveConfigEnabledOnlyWhenComplete(t *testing.T) {
	t.Setenv("QUANTA_DATA_DIR", t.TempDir())
	t.Setenv("ARCHIVE_ENDPOINT", "https://storage.example.com")
	t.Setenv("ARCHIVE_BUCKET", "quanta-archive")
	t.Setenv("ARCHIVE_ACCESS_KEY_ID", "key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Archive.Enabled, "missing secret key leaves archiving off")

	t.Setenv("ARCHIVE_SECRET_ACCESS_KEY", "secret")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, "auto", cfg.Archive.Region)
}
