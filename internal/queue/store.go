package queue

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/quantalab/quanta/internal/database"
	"github.com/quantalab/quanta/internal/domain"
)

// ErrJobNotFound is returned when a job id is not present in the store
var ErrJobNotFound = errors.New("job not found")

// Store is the durable queue backing store. Submitted jobs are persisted
// here so job state survives process restarts between submission and worker
// pickup. Circuit and result payloads are msgpack blobs.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// NewStore creates a job store on the given database
func NewStore(db *database.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("repo", "jobs").Logger(),
	}
}

// jobColumns is the column list shared by all job SELECTs.
// Order must match scanJob.
const jobColumns = `id, problem_id, problem_type, status, backend, shots, circuit, result, error, created_at, completed_at`

// Enqueue persists a new job in QUEUED state
func (s *Store) Enqueue(job *domain.QuantumJob) error {
	circuitBlob, err := msgpack.Marshal(job.Circuit)
	if err != nil {
		return fmt.Errorf("failed to encode circuit: %w", err)
	}

	query := `
		INSERT INTO jobs
		(id, problem_id, problem_type, status, backend, shots, circuit, created_at, taken)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
	`

	_, err = s.db.Exec(query,
		job.ID,
		job.ProblemID,
		string(job.ProblemType),
		string(job.Status),
		job.Backend,
		job.Shots,
		circuitBlob,
		job.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}

	return nil
}

// Dequeue atomically takes the oldest untaken job. Returns nil when the
// queue is empty. The taken flag guarantees at most one consumer per job
// even with multiple workers.
func (s *Store) Dequeue() (*domain.QuantumJob, error) {
	var job *domain.QuantumJob

	err := database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		row := tx.QueryRow(`
			SELECT ` + jobColumns + `
			FROM jobs
			WHERE taken = 0
			ORDER BY created_at, id
			LIMIT 1
		`)

		j, err := scanJob(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}

		result, err := tx.Exec(`UPDATE jobs SET taken = 1 WHERE id = ? AND taken = 0`, j.ID)
		if err != nil {
			return fmt.Errorf("failed to mark job %s taken: %w", j.ID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Raced with another consumer inside the same process; the
			// caller just retries on the next wake-up.
			return nil
		}

		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}

	return job, nil
}

// GetByID returns a job by id, or ErrJobNotFound
func (s *Store) GetByID(id string) (*domain.QuantumJob, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}

	return job, nil
}

// Update persists the mutable job fields (status, result, error, completion time)
func (s *Store) Update(job *domain.QuantumJob) error {
	var resultBlob []byte
	if job.Result != nil {
		blob, err := msgpack.Marshal(job.Result)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		resultBlob = blob
	}

	var completedAt interface{}
	if job.CompletedAt != nil {
		completedAt = job.CompletedAt.UnixMilli()
	}

	query := `
		UPDATE jobs
		SET status = ?, result = ?, error = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(query,
		string(job.Status),
		resultBlob,
		nullString(job.Error),
		completedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}

	return nil
}

// PendingJobs returns jobs not yet picked up by a worker, oldest first.
// Used on startup to recover jobs submitted before a restart.
func (s *Store) PendingJobs() ([]*domain.QuantumJob, error) {
	rows, err := s.db.Query(`
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE taken = 0
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ResetStalled requeues jobs a previous process took but never finished:
// taken rows still in a non-terminal state go back to QUEUED. Returns the
// number of rows requeued. Called once on startup before the workers run.
func (s *Store) ResetStalled() (int64, error) {
	result, err := s.db.Exec(`
		UPDATE jobs
		SET taken = 0, status = ?, error = ''
		WHERE taken = 1 AND status IN (?, ?)
	`, string(domain.StatusQueued), string(domain.StatusQueued), string(domain.StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("failed to reset stalled jobs: %w", err)
	}

	return result.RowsAffected()
}

// TerminalJobsBefore returns COMPLETED/FAILED jobs whose completion time is
// before the cutoff. Used by the archiver and the garbage collector.
func (s *Store) TerminalJobsBefore(cutoff time.Time) ([]*domain.QuantumJob, error) {
	rows, err := s.db.Query(`
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status IN (?, ?) AND completed_at IS NOT NULL AND completed_at < ?
		ORDER BY completed_at
	`, string(domain.StatusCompleted), string(domain.StatusFailed), cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list terminal jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// DeleteTerminalBefore removes terminal jobs completed before the cutoff
// and returns the number of rows removed.
func (s *Store) DeleteTerminalBefore(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM jobs
		WHERE status IN (?, ?) AND completed_at IS NOT NULL AND completed_at < ?
	`, string(domain.StatusCompleted), string(domain.StatusFailed), cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete terminal jobs: %w", err)
	}

	return result.RowsAffected()
}

// CountByStatus returns job counts grouped by status
func (s *Store) CountByStatus() (map[domain.JobStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.JobStatus(status)] = count
	}

	return counts, rows.Err()
}

// CountByBackend returns job counts grouped by backend
func (s *Store) CountByBackend() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT backend, COUNT(*) FROM jobs GROUP BY backend`)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs by backend: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var backend string
		var count int
		if err := rows.Scan(&backend, &count); err != nil {
			return nil, err
		}
		counts[backend] = count
	}

	return counts, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for scanJob
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*domain.QuantumJob, error) {
	var (
		job         domain.QuantumJob
		problemType string
		status      string
		circuitBlob []byte
		resultBlob  []byte
		errMsg      sql.NullString
		createdAt   int64
		completedAt sql.NullInt64
	)

	err := row.Scan(
		&job.ID,
		&job.ProblemID,
		&problemType,
		&status,
		&job.Backend,
		&job.Shots,
		&circuitBlob,
		&resultBlob,
		&errMsg,
		&createdAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.ProblemType = domain.ProblemType(problemType)
	job.Status = domain.JobStatus(status)
	job.CreatedAt = time.UnixMilli(createdAt)

	if err := msgpack.Unmarshal(circuitBlob, &job.Circuit); err != nil {
		return nil, fmt.Errorf("failed to decode circuit for job %s: %w", job.ID, err)
	}

	if len(resultBlob) > 0 {
		var result domain.QuantumJobResult
		if err := msgpack.Unmarshal(resultBlob, &result); err != nil {
			return nil, fmt.Errorf("failed to decode result for job %s: %w", job.ID, err)
		}
		job.Result = &result
	}

	if errMsg.Valid {
		job.Error = errMsg.String
	}

	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64)
		job.CompletedAt = &t
	}

	return &job, nil
}

func collectJobs(rows *sql.Rows) ([]*domain.QuantumJob, error) {
	var jobs []*domain.QuantumJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
