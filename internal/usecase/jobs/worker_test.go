package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessOne(t *testing.T) {
	q, _ := newQueue(t, 3)
	ctx := context.Background()
	q.Registry.Register(testJobType, func(context.Context, *domain.Job) error { return nil })

	ran, err := ProcessOne(ctx, q, "w1")
	require.NoError(t, err)
	assert.False(t, ran)

	job, err := q.Enqueue(ctx, testJobType, nil, domain.EnqueueOptions{})
	require.NoError(t, err)

	ran, err = ProcessOne(ctx, q, "w1")
	require.NoError(t, err)
	assert.True(t, ran)

	stored, err := q.GetJobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobDone, stored.Status)
	assert.Equal(t, "w1", stored.ClaimedBy)
}

func TestWorkerPoolDrainsQueue(t *testing.T) {
	q, _ := newQueue(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled atomic.Int32
	q.Registry.Register(testJobType, func(context.Context, *domain.Job) error {
		handled.Add(1)
		return nil
	})
	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, testJobType, map[string]int{"n": i}, domain.EnqueueOptions{})
		require.NoError(t, err)
	}

	pool := NewWorkerPool(q, 3, 10*time.Millisecond, q.Logger)
	done := make(chan error, 1)
	go func() { done <- pool.Start(ctx) }()

	require.Eventually(t, func() bool { return handled.Load() == 5 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker pool did not stop")
	}
}
