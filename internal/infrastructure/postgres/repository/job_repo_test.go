package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-matrix-service/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(key string, scheduledAt time.Time) *domain.Job {
	job := &domain.Job{
		ID:          uuid.New().String(),
		Type:        domain.JobTypeActivation,
		Payload:     []byte(`{}`),
		Status:      domain.JobPending,
		MaxAttempts: 2,
		ScheduledAt: scheduledAt,
		CreatedAt:   scheduledAt,
		UpdatedAt:   scheduledAt,
	}
	if key != "" {
		job.IdempotencyKey = &key
	}
	return job
}

func TestJobCreateIsIdempotentByKey(t *testing.T) {
	repo := repository.NewDefaultJobRepository(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	first := newJob("activation:U:PRIME_150:order:1", now)
	inserted, err := repo.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Create(ctx, newJob("activation:U:PRIME_150:order:1", now))
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.GetByIdempotencyKey(ctx, "activation:U:PRIME_150:order:1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = repo.GetByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestClaimNextSkipsFutureJobs(t *testing.T) {
	repo := repository.NewDefaultJobRepository(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.Create(ctx, newJob("", now.Add(time.Hour)))
	require.NoError(t, err)

	claimed, err := repo.ClaimNext(ctx, now, "w1")
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestClaimNextHandsEachJobToOneWorker(t *testing.T) {
	repo := repository.NewDefaultJobRepository(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, newJob("", now.Add(-time.Duration(i+1)*time.Second)))
		require.NoError(t, err)
	}

	var (
		mu      sync.Mutex
		claimed = map[string]string{}
		wg      sync.WaitGroup
		errs    = make(chan error, 10)
	)
	for w := 0; w < 10; w++ {
		workerID := fmt.Sprintf("w%d", w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := repo.ClaimNext(ctx, now, workerID)
			if err != nil {
				errs <- err
				return
			}
			if job == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if prev, dup := claimed[job.ID]; dup {
				errs <- fmt.Errorf("job %s claimed by %s and %s", job.ID, prev, workerID)
				return
			}
			claimed[job.ID] = workerID
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, claimed, 5)

	for id, workerID := range claimed {
		job, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobRunning, job.Status)
		assert.Equal(t, 1, job.Attempts)
		assert.Equal(t, workerID, job.ClaimedBy)
	}
}

func TestJobLifecycle(t *testing.T) {
	repo := repository.NewDefaultJobRepository(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	job := newJob("", now.Add(-time.Second))
	_, err := repo.Create(ctx, job)
	require.NoError(t, err)

	claimed, err := repo.ClaimNext(ctx, now, "w1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// another worker's claim cannot finish the job
	other := claimed.Claim()
	other.WorkerID = "w9"
	assert.ErrorIs(t, repo.MarkDone(ctx, other, now), domain.ErrClaimLost)
	require.NoError(t, repo.MarkFailed(ctx, claimed.Claim(), "boom", now))

	// finishing a job that is not running is refused
	assert.ErrorIs(t, repo.MarkDone(ctx, claimed.Claim(), now), domain.ErrClaimLost)

	retryable, err := repo.FindRetryable(ctx, now.Add(time.Second), domain.RetryCursor{}, 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, "boom", retryable[0].LastError)

	reset, err := repo.ResetFailed(ctx, job.ID, now)
	require.NoError(t, err)
	assert.True(t, reset)

	claimed, err = repo.ClaimNext(ctx, now.Add(time.Second), "w2")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, 2, claimed.Attempts)

	// the first claim is stale once the job was claimed again
	first := claimed.Claim()
	first.Attempt = 1
	assert.ErrorIs(t, repo.MarkFailed(ctx, first, "late", now.Add(time.Second)), domain.ErrClaimLost)
	require.NoError(t, repo.MarkFailed(ctx, claimed.Claim(), "boom again", now.Add(time.Second)))

	// attempts exhausted
	reset, err = repo.ResetFailed(ctx, job.ID, now)
	require.NoError(t, err)
	assert.False(t, reset)
}

func TestFindRetryablePagesByCursor(t *testing.T) {
	repo := repository.NewDefaultJobRepository(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	var ids []string
	for i := 0; i < 3; i++ {
		job := newJob("", now)
		job.Status = domain.JobFailed
		job.Attempts = 1
		finished := now.Add(time.Duration(i) * time.Second)
		job.FinishedAt = &finished
		_, err := repo.Create(ctx, job)
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	page, err := repo.FindRetryable(ctx, now.Add(time.Minute), domain.RetryCursor{}, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[:2], []string{page[0].ID, page[1].ID})

	last := page[1]
	page, err = repo.FindRetryable(ctx, now.Add(time.Minute), domain.RetryCursor{FinishedAt: *last.FinishedAt, ID: last.ID}, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[2], page[0].ID)
}

func TestReleaseStale(t *testing.T) {
	repo := repository.NewDefaultJobRepository(testutil.NewDB(t))
	ctx := context.Background()
	start := time.Now().UTC().Add(-time.Hour)

	fresh := newJob("", start)
	fresh.MaxAttempts = 3
	exhausted := newJob("", start.Add(time.Second))
	exhausted.MaxAttempts = 1
	for _, j := range []*domain.Job{fresh, exhausted} {
		_, err := repo.Create(ctx, j)
		require.NoError(t, err)
		claimed, err := repo.ClaimNext(ctx, start.Add(time.Minute), "dead-worker")
		require.NoError(t, err)
		require.NotNil(t, claimed)
	}

	now := time.Now().UTC()
	requeued, failed, err := repo.ReleaseStale(ctx, now.Add(-time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), requeued)
	assert.Equal(t, int64(1), failed)

	got, err := repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, got.Status)
	assert.Empty(t, got.ClaimedBy)

	got, err = repo.GetByID(ctx, exhausted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.NotNil(t, got.FinishedAt)
}
