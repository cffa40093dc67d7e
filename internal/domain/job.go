package domain

import (
	"context"
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobPending JobStatus = "PENDING"
	JobRunning JobStatus = "RUNNING"
	JobDone    JobStatus = "DONE"
	JobFailed  JobStatus = "FAILED"
)

const (
	JobTypeActivation = "activation.process"
	JobTypeOpenPools  = "matrix.open_pools"
	JobTypeDistribute = "matrix.distribute"
	JobTypeAdjust     = "ledger.adjust"
)

type Job struct {
	ID             string
	Type           string
	Payload        json.RawMessage
	Status         JobStatus
	Attempts       int
	MaxAttempts    int
	IdempotencyKey *string
	LastError      string
	ClaimedBy      string
	ScheduledAt    time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// JobClaim identifies one claim of a job: the worker and the attempt it runs.
// A released and reclaimed job gets a new claim.
type JobClaim struct {
	JobID    string
	WorkerID string
	Attempt  int
}

func (j *Job) Claim() JobClaim {
	return JobClaim{JobID: j.ID, WorkerID: j.ClaimedBy, Attempt: j.Attempts}
}

// RetryCursor pages FindRetryable results ordered by (FinishedAt, ID). The
// zero value starts at the beginning.
type RetryCursor struct {
	FinishedAt time.Time
	ID         string
}

// Retryable reports whether a FAILED job may go back to PENDING.
func (j *Job) Retryable() bool {
	return j.Status == JobFailed && j.Attempts < j.MaxAttempts
}

type EnqueueOptions struct {
	IdempotencyKey string
	MaxAttempts    int
	ScheduledAt    time.Time
}

// JobHandler must be safe to run more than once for the same job.
type JobHandler func(ctx context.Context, job *Job) error

type JobRepository interface {
	// Create inserts the job unless its idempotency key is taken. It reports whether a row was inserted.
	Create(ctx context.Context, job *Job) (bool, error)
	GetByID(ctx context.Context, jobID string) (*Job, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Job, error)
	// ClaimNext moves the oldest due PENDING job to RUNNING, skipping rows locked by other claimers.
	ClaimNext(ctx context.Context, now time.Time, workerID string) (*Job, error)
	// MarkDone and MarkFailed record the outcome of a claim. They fail with
	// ErrClaimLost when the job is no longer RUNNING under that claim.
	MarkDone(ctx context.Context, claim JobClaim, finishedAt time.Time) error
	MarkFailed(ctx context.Context, claim JobClaim, lastError string, finishedAt time.Time) error
	// ResetFailed moves a FAILED job with attempts left back to PENDING.
	ResetFailed(ctx context.Context, jobID string, scheduledAt time.Time) (bool, error)
	// FindRetryable lists FAILED jobs with attempts left that finished at or
	// before finishedBefore, in (finished_at, id) order after the cursor.
	FindRetryable(ctx context.Context, finishedBefore time.Time, after RetryCursor, limit int) ([]*Job, error)
	// ReleaseStale handles RUNNING jobs started before the cutoff: requeued when attempts remain, failed otherwise.
	ReleaseStale(ctx context.Context, startedBefore, now time.Time) (requeued, failed int64, err error)
}

type JobQueue interface {
	Enqueue(ctx context.Context, taskType string, payload any, opts EnqueueOptions) (*Job, error)
	FetchNext(ctx context.Context, workerID string) (*Job, error)
	Run(ctx context.Context, job *Job) error
	GetJobStatus(ctx context.Context, jobID string) (*Job, error)
	Requeue(ctx context.Context, jobID string) (*Job, error)
}
