package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/metrics"
	"github.com/google/uuid"
)

const (
	DefaultMaxAttempts = 5
	retryBatchSize     = 100
)

type DefaultJobQueue struct {
	Repo        domain.JobRepository
	Registry    *Registry
	Metrics     *metrics.JobMetrics
	Logger      *slog.Logger
	MaxAttempts int
	retryBatch  int
	now         func() time.Time
}

func NewDefaultJobQueue(
	repo domain.JobRepository,
	registry *Registry,
	jobMetrics *metrics.JobMetrics,
	logger *slog.Logger,
	maxAttempts int,
) *DefaultJobQueue {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultJobQueue{
		Repo:        repo,
		Registry:    registry,
		Metrics:     jobMetrics,
		Logger:      logger,
		MaxAttempts: maxAttempts,
		retryBatch:  retryBatchSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue stores a PENDING job. With an idempotency key, an existing job for
// the key is returned instead; if that job failed with attempts left it is
// moved back to PENDING first.
func (q *DefaultJobQueue) Enqueue(ctx context.Context, taskType string, payload any, opts domain.EnqueueOptions) (*domain.Job, error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", taskType, err)
	}

	if opts.IdempotencyKey != "" {
		existing, err := q.Repo.GetByIdempotencyKey(ctx, opts.IdempotencyKey)
		if err == nil {
			return q.revive(ctx, existing)
		}
		if !errors.Is(err, domain.ErrJobNotFound) {
			return nil, err
		}
	}

	now := q.now()
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = q.MaxAttempts
	}
	scheduledAt := opts.ScheduledAt.UTC()
	if opts.ScheduledAt.IsZero() {
		scheduledAt = now
	}
	job := &domain.Job{
		ID:          uuid.New().String(),
		Type:        taskType,
		Payload:     raw,
		Status:      domain.JobPending,
		MaxAttempts: maxAttempts,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if opts.IdempotencyKey != "" {
		key := opts.IdempotencyKey
		job.IdempotencyKey = &key
	}

	created, err := q.Repo.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("create %s job: %w", taskType, err)
	}
	if !created {
		if job.IdempotencyKey == nil {
			return nil, fmt.Errorf("%w: job %s was not inserted", domain.ErrConstraintViolation, job.ID)
		}
		// lost the race for the key
		existing, err := q.Repo.GetByIdempotencyKey(ctx, *job.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		return q.revive(ctx, existing)
	}

	if q.Metrics != nil {
		q.Metrics.JobsEnqueuedTotal.WithLabelValues(taskType, "false").Inc()
	}
	q.Logger.Debug("job enqueued",
		slog.String("job_id", job.ID),
		slog.String("job_type", taskType),
	)
	return job, nil
}

// marshalPayload encodes payload as a JSON object. A nil payload becomes {}.
func marshalPayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("%w: want a JSON object, got %s", domain.ErrInvalidPayload, raw)
	}
	return raw, nil
}

func (q *DefaultJobQueue) revive(ctx context.Context, existing *domain.Job) (*domain.Job, error) {
	if q.Metrics != nil {
		q.Metrics.JobsEnqueuedTotal.WithLabelValues(existing.Type, "true").Inc()
	}
	if !existing.Retryable() {
		return existing, nil
	}
	reset, err := q.Repo.ResetFailed(ctx, existing.ID, q.now())
	if err != nil {
		return nil, fmt.Errorf("reset job %s: %w", existing.ID, err)
	}
	if !reset {
		return existing, nil
	}
	if q.Metrics != nil {
		q.Metrics.JobsRequeuedTotal.WithLabelValues("enqueue").Inc()
	}
	return q.Repo.GetByID(ctx, existing.ID)
}

// FetchNext claims the next due job for workerID, or returns nil when none is due.
func (q *DefaultJobQueue) FetchNext(ctx context.Context, workerID string) (*domain.Job, error) {
	job, err := q.Repo.ClaimNext(ctx, q.now(), workerID)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if job != nil && q.Metrics != nil {
		q.Metrics.JobsClaimedTotal.WithLabelValues(job.Type).Inc()
	}
	return job, nil
}

// Run executes the handler registered for the job type and records the
// outcome. A missing handler, a handler error and a handler panic all end in
// FAILED with the reason kept in LastError. The returned error is the
// handler's failure, or the failure to persist the outcome.
func (q *DefaultJobQueue) Run(ctx context.Context, job *domain.Job) error {
	started := q.now()
	var runErr error
	handler, ok := q.Registry.Lookup(job.Type)
	if !ok {
		runErr = fmt.Errorf("%w: %s", domain.ErrHandlerNotFound, job.Type)
	} else {
		runErr = invoke(ctx, handler, job)
	}
	finished := q.now()
	if q.Metrics != nil {
		q.Metrics.JobDuration.WithLabelValues(job.Type).Observe(finished.Sub(started).Seconds())
	}

	// the outcome is persisted even when ctx was cancelled mid-run
	persistCtx := context.WithoutCancel(ctx)
	if runErr != nil {
		if err := q.Repo.MarkFailed(persistCtx, job.Claim(), runErr.Error(), finished); err != nil {
			q.Logger.Error("failed to mark job failed",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("mark job %s failed: %w", job.ID, err)
		}
		job.Status = domain.JobFailed
		job.LastError = runErr.Error()
		job.FinishedAt = &finished
		q.countFinished(job)
		q.Logger.Warn("job failed",
			slog.String("job_id", job.ID),
			slog.String("job_type", job.Type),
			slog.Int("attempts", job.Attempts),
			slog.Int("max_attempts", job.MaxAttempts),
			slog.String("error", runErr.Error()),
		)
		return runErr
	}

	if err := q.Repo.MarkDone(persistCtx, job.Claim(), finished); err != nil {
		q.Logger.Error("failed to mark job done",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("mark job %s done: %w", job.ID, err)
	}
	job.Status = domain.JobDone
	job.LastError = ""
	job.FinishedAt = &finished
	q.countFinished(job)
	q.Logger.Info("job done",
		slog.String("job_id", job.ID),
		slog.String("job_type", job.Type),
		slog.Duration("duration", finished.Sub(started)),
	)
	return nil
}

func invoke(ctx context.Context, handler domain.JobHandler, job *domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v\n%s", r, debug.Stack())
		}
	}()
	return handler(ctx, job)
}

func (q *DefaultJobQueue) countFinished(job *domain.Job) {
	if q.Metrics != nil {
		q.Metrics.JobsFinishedTotal.WithLabelValues(job.Type, string(job.Status)).Inc()
	}
}

func (q *DefaultJobQueue) GetJobStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	return q.Repo.GetByID(ctx, jobID)
}

// Requeue moves a FAILED job with attempts left back to PENDING.
func (q *DefaultJobQueue) Requeue(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := q.Repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Retryable() {
		return nil, fmt.Errorf("%w: job %s is %s after %d/%d attempts",
			domain.ErrJobNotRetryable, job.ID, job.Status, job.Attempts, job.MaxAttempts)
	}
	reset, err := q.Repo.ResetFailed(ctx, jobID, q.now())
	if err != nil {
		return nil, err
	}
	if !reset {
		return nil, fmt.Errorf("%w: job %s changed state", domain.ErrJobNotRetryable, job.ID)
	}
	if q.Metrics != nil {
		q.Metrics.JobsRequeuedTotal.WithLabelValues("manual").Inc()
	}
	return q.Repo.GetByID(ctx, jobID)
}

// RetryFailed moves FAILED jobs back to PENDING once attempts*backoff has
// passed since they finished. It pages through every candidate so jobs that
// are not due yet cannot hide due ones. It returns how many were requeued.
func (q *DefaultJobQueue) RetryFailed(ctx context.Context, backoff time.Duration) (int, error) {
	now := q.now()
	requeued := 0
	defer func() {
		if requeued > 0 && q.Metrics != nil {
			q.Metrics.JobsRequeuedTotal.WithLabelValues("retry").Add(float64(requeued))
		}
	}()

	var cursor domain.RetryCursor
	for {
		candidates, err := q.Repo.FindRetryable(ctx, now.Add(-backoff), cursor, q.retryBatch)
		if err != nil {
			return requeued, fmt.Errorf("find retryable jobs: %w", err)
		}

		for _, job := range candidates {
			if job.FinishedAt == nil {
				continue
			}
			if job.FinishedAt.Add(backoff * time.Duration(job.Attempts)).After(now) {
				continue
			}
			ok, err := q.Repo.ResetFailed(ctx, job.ID, now)
			if err != nil {
				return requeued, fmt.Errorf("reset job %s: %w", job.ID, err)
			}
			if ok {
				requeued++
			}
		}

		if len(candidates) < q.retryBatch {
			return requeued, nil
		}
		last := candidates[len(candidates)-1]
		if last.FinishedAt == nil {
			return requeued, nil
		}
		cursor = domain.RetryCursor{FinishedAt: *last.FinishedAt, ID: last.ID}
	}
}

// ReleaseStale returns RUNNING jobs claimed more than staleAfter ago to
// PENDING, or fails them when they have no attempts left.
func (q *DefaultJobQueue) ReleaseStale(ctx context.Context, staleAfter time.Duration) (requeued, failed int64, err error) {
	now := q.now()
	requeued, failed, err = q.Repo.ReleaseStale(ctx, now.Add(-staleAfter), now)
	if err != nil {
		return 0, 0, fmt.Errorf("release stale jobs: %w", err)
	}
	if q.Metrics != nil {
		if requeued > 0 {
			q.Metrics.JobsRequeuedTotal.WithLabelValues("stale").Add(float64(requeued))
		}
		if failed > 0 {
			q.Metrics.JobsRequeuedTotal.WithLabelValues("stale_failed").Add(float64(failed))
		}
	}
	return requeued, failed, nil
}
