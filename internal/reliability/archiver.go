package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/quantalab/quanta/internal/domain"
	"github.com/quantalab/quanta/internal/events"
)

// ObjectUploader uploads archive payloads to an object store.
type ObjectUploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
}

// ArchiveStore provides access to terminal jobs eligible for archiving.
type ArchiveStore interface {
	TerminalJobsBefore(cutoff time.Time) ([]*domain.QuantumJob, error)
	DeleteTerminalBefore(cutoff time.Time) (int64, error)
}

// ArchiveService moves terminal jobs out of the live database and into
// cold object storage as compressed msgpack batches.
type ArchiveService struct {
	uploader ObjectUploader
	store    ArchiveStore
	em       *events.Manager
	log      zerolog.Logger
}

// NewArchiveService creates a new archive service.
func NewArchiveService(uploader ObjectUploader, store ArchiveStore, em *events.Manager, log zerolog.Logger) *ArchiveService {
	return &ArchiveService{
		uploader: uploader,
		store:    store,
		em:       em,
		log:      log.With().Str("service", "archive").Logger(),
	}
}

// ArchiveBefore uploads all terminal jobs completed before the cutoff and
// removes them from the live database. Jobs are only deleted after the
// upload succeeds, so a failed upload leaves the database untouched.
func (s *ArchiveService) ArchiveBefore(ctx context.Context, cutoff time.Time) (int, error) {
	jobs, err := s.store.TerminalJobsBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to collect terminal jobs: %w", err)
	}
	if len(jobs) == 0 {
		s.log.Debug().Msg("No terminal jobs to archive")
		return 0, nil
	}

	payload, err := encodeArchive(jobs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode archive: %w", err)
	}

	key := archiveKey(time.Now().UTC())
	if err := s.uploader.Upload(ctx, key, bytes.NewReader(payload)); err != nil {
		return 0, fmt.Errorf("failed to upload archive: %w", err)
	}

	deleted, err := s.store.DeleteTerminalBefore(cutoff)
	if err != nil {
		// The upload succeeded, so the data is safe either way. The rows
		// will be retried on the next run.
		s.log.Warn().Err(err).Msg("Archived jobs could not be deleted from live database")
	}

	s.log.Info().
		Int("jobs", len(jobs)).
		Int64("deleted", deleted).
		Str("key", key).
		Int("size_bytes", len(payload)).
		Msg("Archive completed")

	if s.em != nil {
		s.em.EmitTyped(events.ArchiveCompleted, "reliability", &events.ArchiveCompletedData{
			Jobs:      len(jobs),
			Key:       key,
			SizeBytes: int64(len(payload)),
		})
	}

	return len(jobs), nil
}

func archiveKey(t time.Time) string {
	return fmt.Sprintf("quanta-jobs-%s.msgpack.gz", t.Format("2006-01-02-150405"))
}

// encodeArchive serializes jobs as msgpack and compresses the batch.
func encodeArchive(jobs []*domain.QuantumJob) ([]byte, error) {
	raw, err := msgpack.Marshal(jobs)
	if err != nil {
		return nil, fmt.Errorf("msgpack encoding failed: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip compression failed: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("gzip flush failed: %w", err)
	}

	return buf.Bytes(), nil
}

// decodeArchive reverses encodeArchive. Used when restoring archived
// batches for inspection.
func decodeArchive(payload []byte) ([]*domain.QuantumJob, error) {
	gz, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gzip decompression failed: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive payload: %w", err)
	}

	var jobs []*domain.QuantumJob
	if err := msgpack.Unmarshal(raw, &jobs); err != nil {
		return nil, fmt.Errorf("msgpack decoding failed: %w", err)
	}
	return jobs, nil
}
