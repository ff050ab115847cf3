package queue

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantalab/quanta/internal/domain"
	qtesting "github.com/quantalab/quanta/internal/testing"
)

func TestGCJobRemovesOnlyExpiredTerminalJobs(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	expired := qtesting.NewJobFixture(domain.StatusCompleted, 1024)
	old := time.Now().UTC().Add(-48 * time.Hour)
	expired.CompletedAt = &old
	require.NoError(t, store.Enqueue(expired))
	require.NoError(t, store.Update(expired))

	fresh := qtesting.NewJobFixture(domain.StatusCompleted, 1024)
	require.NoError(t, store.Enqueue(fresh))
	require.NoError(t, store.Update(fresh))

	pending := qtesting.NewJobFixture(domain.StatusQueued, 1024)
	require.NoError(t, store.Enqueue(pending))

	job := NewGCJob(store, 24*time.Hour, zerolog.Nop())
	assert.Equal(t, "job_gc", job.Name())
	require.NoError(t, job.Run())

	_, err := store.GetByID(expired.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = store.GetByID(fresh.ID)
	assert.NoError(t, err, "recent terminal jobs stay within the retention window")

	_, err = store.GetByID(pending.ID)
	assert.NoError(t, err, "queued jobs are never garbage collected")
}
