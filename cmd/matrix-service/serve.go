package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/LavaJover/shvark-matrix-service/internal/delivery/grpcapi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC API, the metrics endpoint and the activation trigger consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	deps, ucs, err := bootstrap()
	if err != nil {
		return err
	}
	defer deps.Close()

	grpcServer := grpc.NewServer()
	grpcapi.RegisterMatrixServiceServer(grpcServer, grpcapi.NewMatrixHandler(
		ucs.JobQueue,
		ucs.LedgerUsecase,
		ucs.ActivationUsecase,
		ucs.PlacementUsecase,
	))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	addr := net.JoinHostPort(deps.Config.GRPCServer.Host, deps.Config.GRPCServer.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Logger.Info("gRPC server started", slog.String("addr", addr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gCtx.Done()
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})
	g.Go(func() error {
		return runHTTP(gCtx, deps)
	})
	if ucs.Trigger != nil {
		g.Go(func() error {
			return ucs.Trigger.Run(gCtx)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	deps.Logger.Info("serve stopped")
	return nil
}
