package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name    string
	runs    atomic.Int64
	err     error
	lastCtx atomic.Value
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	j.lastCtx.Store(ctx)
	return j.err
}

func TestScheduler_RunsJobOnSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}

	require.NoError(t, s.AddJob("@every 100ms", job))
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return job.runs.Load() >= 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestScheduler_RejectsInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{name: "broken"})
	assert.Error(t, err)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "manual", err: errors.New("boom")}

	err := s.RunNow(context.Background(), job)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int64(1), job.runs.Load())
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "tick"}

	require.NoError(t, s.AddJob("@every 50ms", job))
	s.Start()

	require.Eventually(t, func() bool {
		return job.runs.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()

	ctx, ok := job.lastCtx.Load().(context.Context)
	require.True(t, ok)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

type fakeBackupper struct {
	calls atomic.Int64
	err   error
}

func (f *fakeBackupper) Backup(ctx context.Context) error {
	f.calls.Add(1)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected a deadline")
	}
	return f.err
}

func TestBackupJob_Run(t *testing.T) {
	backupper := &fakeBackupper{}
	job := NewBackupJob(backupper)

	assert.Equal(t, "results-backup", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, int64(1), backupper.calls.Load())

	backupper.err = errors.New("upload failed")
	assert.EqualError(t, job.Run(context.Background()), "upload failed")
}

func TestBackupJob_CancelledContext(t *testing.T) {
	backupper := &fakeBackupper{}
	job := NewBackupJob(backupper)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
}
