package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/jaevor/go-nanoid"
	"golang.org/x/sync/errgroup"
)

const workerIDSize = 12

// WorkerPool runs Concurrency workers, each claiming and running one job at a time.
type WorkerPool struct {
	Queue        domain.JobQueue
	Concurrency  int
	PollInterval time.Duration
	Logger       *slog.Logger
}

func NewWorkerPool(queue domain.JobQueue, concurrency int, pollInterval time.Duration, logger *slog.Logger) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		Queue:        queue,
		Concurrency:  concurrency,
		PollInterval: pollInterval,
		Logger:       logger,
	}
}

// Start blocks until ctx is done. Jobs already claimed finish before it returns.
func (p *WorkerPool) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < p.Concurrency; i++ {
		workerID, err := nanoid.Standard(workerIDSize)
		if err != nil {
			return fmt.Errorf("worker id: %w", err)
		}
		id := "worker-" + workerID()
		g.Go(func() error {
			p.loop(gCtx, id)
			return nil
		})
	}
	p.Logger.Info("worker pool started", slog.Int("workers", p.Concurrency))
	err := g.Wait()
	p.Logger.Info("worker pool stopped")
	return err
}

func (p *WorkerPool) loop(ctx context.Context, workerID string) {
	for ctx.Err() == nil {
		ran, err := ProcessOne(ctx, p.Queue, workerID)
		if err != nil {
			p.Logger.Warn("job run finished with error",
				slog.String("worker_id", workerID),
				slog.String("error", err.Error()),
			)
		}
		if ran {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.PollInterval):
		}
	}
}

// ProcessOne claims and runs at most one job. It reports whether a job was claimed.
func ProcessOne(ctx context.Context, queue domain.JobQueue, workerID string) (bool, error) {
	job, err := queue.FetchNext(ctx, workerID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	return true, queue.Run(ctx, job)
}
