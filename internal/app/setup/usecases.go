package setup

import (
	"fmt"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase/activation"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase/jobs"
)

type UseCases struct {
	LedgerUsecase     *usecase.DefaultLedgerUsecase
	PlacementUsecase  *usecase.DefaultPlacementUsecase
	ActivationUsecase *activation.DefaultActivationUsecase
	JobQueue          *jobs.DefaultJobQueue
	Trigger           *jobs.TriggerConsumer
}

func InitializeUseCases(deps *Dependencies) (*UseCases, error) {
	ledgerUsecase, err := usecase.NewDefaultLedgerUsecase(deps.Repositories.Store, deps.Metrics.Commission)
	if err != nil {
		return nil, fmt.Errorf("ledger usecase: %w", err)
	}
	placementUsecase := usecase.NewDefaultPlacementUsecase(deps.Repositories.Store, deps.Metrics.Commission)
	activationUsecase := activation.NewDefaultActivationUsecase(
		deps.Repositories.Store,
		ledgerUsecase,
		placementUsecase,
		deps.CommissionConfig,
		deps.Metrics.Commission,
		deps.Logger,
	)

	registry := jobs.NewRegistry()
	handlers := &jobs.Handlers{
		Activation: activationUsecase,
		Logger:     deps.Logger,
	}
	if deps.Publisher != nil {
		handlers.Publisher = deps.Publisher
		handlers.PayoutTopic = deps.Config.KafkaService.PayoutTopic
	}
	handlers.Register(registry)

	queue := jobs.NewDefaultJobQueue(
		deps.Repositories.Jobs,
		registry,
		deps.Metrics.Jobs,
		deps.Logger,
		deps.Config.Worker.MaxAttempts,
	)

	var trigger *jobs.TriggerConsumer
	if deps.Subscriber != nil {
		trigger = &jobs.TriggerConsumer{
			Subscriber: deps.Subscriber,
			Queue:      queue,
			Topic:      deps.Config.KafkaService.TriggerTopic,
			GroupID:    deps.Config.KafkaService.GroupID,
			Logger:     deps.Logger,
		}
	}

	return &UseCases{
		LedgerUsecase:     ledgerUsecase,
		PlacementUsecase:  placementUsecase,
		ActivationUsecase: activationUsecase,
		JobQueue:          queue,
		Trigger:           trigger,
	}, nil
}

var (
	_ domain.LedgerUsecase     = (*usecase.DefaultLedgerUsecase)(nil)
	_ domain.PlacementUsecase  = (*usecase.DefaultPlacementUsecase)(nil)
	_ domain.ActivationUsecase = (*activation.DefaultActivationUsecase)(nil)
	_ domain.JobQueue          = (*jobs.DefaultJobQueue)(nil)
)
