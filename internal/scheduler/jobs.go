package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/qvalidate/internal/modules/validation"
)

// ValidationRunJob starts a scheduled validation run. If a run is already in
// progress the tick is skipped rather than queued.
type ValidationRunJob struct {
	service *validation.Service
}

// NewValidationRunJob creates a job that triggers validation runs.
func NewValidationRunJob(service *validation.Service) *ValidationRunJob {
	return &ValidationRunJob{service: service}
}

// Name returns the job name
func (j *ValidationRunJob) Name() string {
	return "validation-run"
}

// Run starts a validation run. The run executes asynchronously and outlives
// the tick; ctx only gates starting a new one.
func (j *ValidationRunJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	_, err := j.service.StartRun()
	if errors.Is(err, validation.ErrRunInProgress) {
		return nil
	}
	return err
}

// Backupper uploads a backup of the results database.
type Backupper interface {
	Backup(ctx context.Context) error
}

// backupTimeout bounds a single backup upload.
const backupTimeout = 5 * time.Minute

// BackupJob uploads the results database to remote storage.
type BackupJob struct {
	backupper Backupper
}

// NewBackupJob creates a job that backs up the results database.
func NewBackupJob(backupper Backupper) *BackupJob {
	return &BackupJob{backupper: backupper}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "results-backup"
}

// Run performs a backup, bounded by backupTimeout and the scheduler context
func (j *BackupJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, backupTimeout)
	defer cancel()
	return j.backupper.Backup(ctx)
}
