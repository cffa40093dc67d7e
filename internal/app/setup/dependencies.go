package setup

import (
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-matrix-service/internal/config"
	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/commissioncfg"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config           *config.MatrixConfig
	Logger           *slog.Logger
	DB               *gorm.DB
	Registry         *prometheus.Registry
	CommissionConfig domain.CommissionConfigProvider
	// Publisher and Subscriber are nil when kafka is disabled.
	Publisher    *kafka.DefaultKafkaPublisher
	Subscriber   *kafka.DefaultKafkaSubscriber
	Repositories *Repositories
	Metrics      *Metrics
}

type Repositories struct {
	Store domain.Store
	Jobs  domain.JobRepository
}

type Metrics struct {
	Commission *metrics.CommissionMetrics
	Jobs       *metrics.JobMetrics
}

func InitializeDependencies(cfg *config.MatrixConfig) (*Dependencies, error) {
	log := logger.New(cfg.LogConfig)

	db := postgres.MustInitDB(cfg)

	provider, err := commissioncfg.NewFileProvider(cfg.Commission.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("commission config: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	deps := &Dependencies{
		Config:           cfg,
		Logger:           log,
		DB:               db,
		Registry:         reg,
		CommissionConfig: provider,
		Repositories: &Repositories{
			Store: repository.NewDefaultStore(db),
			Jobs:  repository.NewDefaultJobRepository(db),
		},
		Metrics: &Metrics{
			Commission: metrics.NewCommissionMetrics(reg),
			Jobs:       metrics.NewJobMetrics(reg),
		},
	}

	if cfg.KafkaService.Enabled {
		if deps.Publisher, err = kafka.NewDefaultKafkaPublisher(cfg.KafkaService); err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		if deps.Subscriber, err = kafka.NewDefaultKafkaSubscriber(cfg.KafkaService, log); err != nil {
			return nil, fmt.Errorf("kafka subscriber: %w", err)
		}
	}
	return deps, nil
}

func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Warn("close kafka publisher", slog.String("error", err.Error()))
		}
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
