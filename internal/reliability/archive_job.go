package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ArchiveJob periodically moves expired terminal jobs to cold storage.
type ArchiveJob struct {
	service   *ArchiveService
	retention time.Duration
	log       zerolog.Logger
}

// NewArchiveJob creates a new archive job
func NewArchiveJob(service *ArchiveService, retention time.Duration, log zerolog.Logger) *ArchiveJob {
	return &ArchiveJob{
		service:   service,
		retention: retention,
		log:       log.With().Str("job", "archive_jobs").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *ArchiveJob) Name() string {
	return "archive_jobs"
}

// Run executes the archive job
func (j *ArchiveJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-j.retention)
	archived, err := j.service.ArchiveBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	if archived > 0 {
		j.log.Info().Int("archived", archived).Msg("Archive job completed")
	}
	return nil
}
