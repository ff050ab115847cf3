package reliability

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantalab/quanta/internal/domain"
	"github.com/quantalab/quanta/internal/events"
	qtesting "github.com/quantalab/quanta/internal/testing"
)

type fakeUploader struct {
	keys     []string
	payloads [][]byte
	err      error
}

func (u *fakeUploader) Upload(_ context.Context, key string, body io.Reader) error {
	if u.err != nil {
		return u.err
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	u.keys = append(u.keys, key)
	u.payloads = append(u.payloads, payload)
	return nil
}

type fakeArchiveStore struct {
	jobs    []*domain.QuantumJob
	deleted int
}

func (s *fakeArchiveStore) TerminalJobsBefore(time.Time) ([]*domain.QuantumJob, error) {
	return s.jobs, nil
}

func (s *fakeArchiveStore) DeleteTerminalBefore(time.Time) (int64, error) {
	s.deleted++
	return int64(len(s.jobs)), nil
}

func TestArchiveBeforeUploadsAndDeletes(t *testing.T) {
	store := &fakeArchiveStore{jobs: []*domain.QuantumJob{
		qtesting.NewJobFixture(domain.StatusCompleted, 1024),
		qtesting.NewJobFixture(domain.StatusFailed, 512),
	}}
	uploader := &fakeUploader{}

	bus := events.NewBus(zerolog.Nop())
	em := events.NewManager(bus, zerolog.Nop())
	received := make(chan *events.Event, 1)
	bus.Subscribe(events.ArchiveCompleted, func(e *events.Event) {
		received <- e
	})

	svc := NewArchiveService(uploader, store, em, zerolog.Nop())
	archived, err := svc.ArchiveBefore(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, archived)
	assert.Equal(t, 1, store.deleted)

	require.Len(t, uploader.keys, 1)
	assert.Contains(t, uploader.keys[0], "quanta-jobs-")
	assert.Contains(t, uploader.keys[0], ".msgpack.gz")

	restored, err := decodeArchive(uploader.payloads[0])
	require.NoError(t, err)
	require.Len(t, restored, 2)
	assert.Equal(t, store.jobs[0].ID, restored[0].ID)
	assert.Equal(t, store.jobs[0].Result.Counts, restored[0].Result.Counts)
	assert.Equal(t, store.jobs[1].Error, restored[1].Error)

	select {
	case e := <-received:
		assert.EqualValues(t, 2, e.Data["jobs"])
		assert.Equal(t, uploader.keys[0], e.Data["key"])
	case <-time.After(time.Second):
		t.Fatal("expected an archive completed event")
	}
}

func TestArchiveBeforeNothingToArchive(t *testing.T) {
	store := &fakeArchiveStore{}
	uploader := &fakeUploader{}

	svc := NewArchiveService(uploader, store, nil, zerolog.Nop())
	archived, err := svc.ArchiveBefore(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, archived)
	assert.Empty(t, uploader.keys)
	assert.Zero(t, store.deleted)
}

func TestArchiveBeforeUploadFailureKeepsJobs(t *testing.T) {
	store := &fakeArchiveStore{jobs: []*domain.QuantumJob{
		qtesting.NewJobFixture(domain.StatusCompleted, 256),
	}}
	uploader := &fakeUploader{err: fmt.Errorf("bucket unreachable")}

	svc := NewArchiveService(uploader, store, nil, zerolog.Nop())
	_, err := svc.ArchiveBefore(context.Background(), time.Now().UTC())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload archive")
	assert.Zero(t, store.deleted, "jobs must survive a failed upload")
}

func TestEncodeArchiveRoundTrip(t *testing.T) {
	jobs := []*domain.QuantumJob{
		qtesting.NewJobFixture(domain.StatusCompleted, 100),
	}

	payload, err := encodeArchive(jobs)
	require.NoError(t, err)

	restored, err := decodeArchive(payload)
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, jobs[0].ID, restored[0].ID)
	assert.Equal(t, jobs[0].Backend, restored[0].Backend)
}
