package background

import (
	"context"
	"log/slog"
	"time"
)

// QueueMaintainer is the maintenance side of the job queue.
type QueueMaintainer interface {
	RetryFailed(ctx context.Context, backoff time.Duration) (int, error)
	ReleaseStale(ctx context.Context, staleAfter time.Duration) (requeued, failed int64, err error)
}

type BackgroundTasks struct {
	Queue          QueueMaintainer
	RetryInterval  time.Duration
	RetryBackoff   time.Duration
	ReaperInterval time.Duration
	StaleAfter     time.Duration
	Logger         *slog.Logger
}

func NewBackgroundTasks(
	queue QueueMaintainer,
	retryInterval, retryBackoff, reaperInterval, staleAfter time.Duration,
	logger *slog.Logger,
) *BackgroundTasks {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackgroundTasks{
		Queue:          queue,
		RetryInterval:  retryInterval,
		RetryBackoff:   retryBackoff,
		ReaperInterval: reaperInterval,
		StaleAfter:     staleAfter,
		Logger:         logger,
	}
}

func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	go bt.startRetrier(ctx)
	go bt.startReaper(ctx)
}

func (bt *BackgroundTasks) startRetrier(ctx context.Context) {
	if bt.RetryInterval <= 0 {
		return
	}
	ticker := time.NewTicker(bt.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.RetryOnce(ctx)
		}
	}
}

func (bt *BackgroundTasks) startReaper(ctx context.Context) {
	if bt.ReaperInterval <= 0 {
		return
	}
	ticker := time.NewTicker(bt.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.ReapOnce(ctx)
		}
	}
}

func (bt *BackgroundTasks) RetryOnce(ctx context.Context) {
	n, err := bt.Queue.RetryFailed(ctx, bt.RetryBackoff)
	if err != nil {
		bt.Logger.Error("retry failed jobs", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		bt.Logger.Info("failed jobs requeued", slog.Int("count", n))
	}
}

func (bt *BackgroundTasks) ReapOnce(ctx context.Context) {
	requeued, failed, err := bt.Queue.ReleaseStale(ctx, bt.StaleAfter)
	if err != nil {
		bt.Logger.Error("release stale jobs", slog.String("error", err.Error()))
		return
	}
	if requeued > 0 || failed > 0 {
		bt.Logger.Warn("stale jobs released",
			slog.Int64("requeued", requeued),
			slog.Int64("failed", failed),
		)
	}
}
