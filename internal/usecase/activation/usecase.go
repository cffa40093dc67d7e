package activation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase/commission"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DefaultActivationUsecase struct {
	Store     domain.Store
	Ledger    *usecase.DefaultLedgerUsecase
	Placement *usecase.DefaultPlacementUsecase
	Config    domain.CommissionConfigProvider
	Metrics   *metrics.CommissionMetrics
	Logger    *slog.Logger
}

func NewDefaultActivationUsecase(
	store domain.Store,
	ledger *usecase.DefaultLedgerUsecase,
	placement *usecase.DefaultPlacementUsecase,
	config domain.CommissionConfigProvider,
	commissionMetrics *metrics.CommissionMetrics,
	logger *slog.Logger,
) *DefaultActivationUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultActivationUsecase{
		Store:     store,
		Ledger:    ledger,
		Placement: placement,
		Config:    config,
		Metrics:   commissionMetrics,
		Logger:    logger,
	}
}

// TryActivate inserts the activation marker in its own transaction and
// reports whether this call created it.
func (uc *DefaultActivationUsecase) TryActivate(ctx context.Context, userID, packageCode string, source domain.SourceRef) (bool, error) {
	var created bool
	err := uc.Store.InTx(ctx, func(tx domain.Store) error {
		var err error
		created, err = insertMarker(ctx, tx, userID, packageCode, source)
		return err
	})
	return created, err
}

func insertMarker(ctx context.Context, tx domain.Store, userID, packageCode string, source domain.SourceRef) (bool, error) {
	return tx.Activations().TryInsert(ctx, &domain.ActivationMarker{
		ID:          uuid.New().String(),
		UserID:      userID,
		PackageCode: packageCode,
		Source:      source,
		CreatedAt:   time.Now().UTC(),
	})
}

func (uc *DefaultActivationUsecase) GetProgress(ctx context.Context, userID string, poolType domain.PoolType) (*domain.MatrixProgress, error) {
	progress, err := uc.Store.Progress().Get(ctx, userID, poolType)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.MatrixProgress{
			UserID:         userID,
			PoolType:       poolType,
			TotalEarned:    decimal.Zero,
			PerLevelCount:  map[int]int64{},
			PerLevelEarned: map[int]decimal.Decimal{},
		}, nil
	}
	return progress, err
}

// eligibility filters intermediaries out of matrix payouts when the
// snapshot disables them. Recipients unknown to identity are not paid.
func eligibility(ctx context.Context, tx domain.Store, cfg *domain.CommissionConfig) commission.Eligibility {
	if cfg.IntermediaryAllowed() {
		return nil
	}
	return func(recipientID string) (bool, error) {
		account, err := tx.Users().GetUser(ctx, recipientID)
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return !account.IsIntermediary, nil
	}
}

func (uc *DefaultActivationUsecase) ledger(tx domain.Store) *usecase.DefaultLedgerUsecase {
	return uc.Ledger.WithStore(tx)
}

func (uc *DefaultActivationUsecase) placement(tx domain.Store) *usecase.DefaultPlacementUsecase {
	return uc.Placement.WithStore(tx)
}
