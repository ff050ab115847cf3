package reliability

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantalab/quanta/internal/database"
)

// DailyMaintenanceJob performs daily database maintenance (2 AM)
type DailyMaintenanceJob struct {
	jobsDB  *database.DB
	dataDir string
	log     zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(jobsDB *database.DB, dataDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		jobsDB:  jobsDB,
		dataDir: dataDir,
		log:     log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Step 1: Integrity check
	if err := j.jobsDB.QuickCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("CRITICAL: Database integrity check failed")
		return fmt.Errorf("CRITICAL: jobs database integrity check failed: %w", err)
	}

	// Step 2: WAL checkpoint (prevent bloat)
	if err := j.jobsDB.WALCheckpoint("TRUNCATE"); err != nil {
		// Not critical, the next checkpoint will catch up
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	// Step 3: Check disk space
	if err := j.checkDiskSpace(); err != nil {
		return err // HALT if critical
	}

	// Step 4: Reclaim space left behind by archived jobs
	if err := j.jobsDB.Vacuum(); err != nil {
		j.log.Warn().Err(err).Msg("Vacuum failed")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")

	return nil
}

// checkDiskSpace verifies sufficient disk space is available
func (j *DailyMaintenanceJob) checkDiskSpace() error {
	stat := syscall.Statfs_t{}
	if err := syscall.Statfs(j.dataDir, &stat); err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableBytes := stat.Bavail * uint64(stat.Bsize)
	availableGB := float64(availableBytes) / 1e9

	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	// CRITICAL: Less than 500MB
	if availableGB < 0.5 {
		j.log.Error().
			Float64("available_gb", availableGB).
			Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("CRITICAL: Only %.2f GB free", availableGB)
	}

	if availableGB < 2.0 {
		j.log.Warn().
			Float64("available_gb", availableGB).
			Msg("WARNING: Low disk space")
	}

	return nil
}
