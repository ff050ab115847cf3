package queue

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// GCJob deletes terminal jobs older than the retention window. It is
// scheduled only when cold-storage archiving is disabled; the archiver
// removes expired rows itself after a successful upload.
type GCJob struct {
	store     *Store
	retention time.Duration
	log       zerolog.Logger
}

// NewGCJob creates a new terminal-job garbage collection job
func NewGCJob(store *Store, retention time.Duration, log zerolog.Logger) *GCJob {
	return &GCJob{
		store:     store,
		retention: retention,
		log:       log.With().Str("job", "job_gc").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *GCJob) Name() string {
	return "job_gc"
}

// Run executes the garbage collection job
func (j *GCJob) Run() error {
	cutoff := time.Now().UTC().Add(-j.retention)

	deleted, err := j.store.DeleteTerminalBefore(cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired jobs: %w", err)
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Expired terminal jobs removed")
	}
	return nil
}
