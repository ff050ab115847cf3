package reliability

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qtesting "github.com/quantalab/quanta/internal/testing"
)

func TestDailyMaintenanceRuns(t *testing.T) {
	db, cleanup := qtesting.NewTestDB(t, "jobs")
	defer cleanup()

	job := NewDailyMaintenanceJob(db, t.TempDir(), zerolog.Nop())
	assert.Equal(t, "daily_maintenance", job.Name())
	require.NoError(t, job.Run())
}
