package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/LavaJover/shvark-matrix-service/internal/app/background"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase/jobs"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWorkerCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Claim and run queued jobs, retry failed ones and release stale claims",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, concurrency)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of workers, overrides worker.concurrency")
	return cmd
}

func runWorker(ctx context.Context, concurrency int) error {
	deps, ucs, err := bootstrap()
	if err != nil {
		return err
	}
	defer deps.Close()

	wc := deps.Config.Worker
	if concurrency <= 0 {
		concurrency = wc.Concurrency
	}
	pool := jobs.NewWorkerPool(ucs.JobQueue, concurrency, wc.PollInterval, deps.Logger)
	tasks := background.NewBackgroundTasks(
		ucs.JobQueue,
		wc.RetryInterval,
		wc.RetryBackoff,
		wc.ReaperInterval,
		wc.StaleAfter,
		deps.Logger,
	)

	g, gCtx := errgroup.WithContext(ctx)
	tasks.StartAll(gCtx)
	g.Go(func() error {
		return pool.Start(gCtx)
	})
	g.Go(func() error {
		return runHTTP(gCtx, deps)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	deps.Logger.Info("worker stopped", slog.Int("workers", concurrency))
	return nil
}
