package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/app/setup"
	"github.com/LavaJover/shvark-matrix-service/internal/config"
	"github.com/LavaJover/shvark-matrix-service/internal/delivery/httpapi"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/migrate"
)

const shutdownTimeout = 10 * time.Second

func loadConfig() (*config.MatrixConfig, error) {
	if configPath == "" {
		return nil, errors.New("config path is empty: pass --config or set MATRIX_CONFIG_PATH")
	}
	return config.Load(configPath)
}

// bootstrap loads config, connects to the database and applies migrations
// when the config asks for it.
func bootstrap() (*setup.Dependencies, *setup.UseCases, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	deps, err := setup.InitializeDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.MatrixDB.AutoMigrate && cfg.MatrixDB.MigrationsPath != "" {
		if err := migrate.RunMigrations(deps.DB, cfg.MatrixDB.MigrationsPath); err != nil {
			deps.Close()
			return nil, nil, err
		}
	}
	ucs, err := setup.InitializeUseCases(deps)
	if err != nil {
		deps.Close()
		return nil, nil, err
	}
	return deps, ucs, nil
}

// runHTTP serves metrics and health checks until ctx is done.
func runHTTP(ctx context.Context, deps *setup.Dependencies) error {
	sqlDB, err := deps.DB.DB()
	if err != nil {
		return fmt.Errorf("sql db: %w", err)
	}
	addr := net.JoinHostPort(deps.Config.HTTPServer.Host, deps.Config.HTTPServer.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(deps.Registry, sqlDB),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("http server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
