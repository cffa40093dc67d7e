package activation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase/commission"
)

// Activate processes one package purchase: marker, direct and self bonus,
// one placement per pool of the package and the level payouts of each new
// placement. Everything commits or rolls back together. A repeated request
// for the same (user, package, source) returns Created=false and changes nothing.
func (uc *DefaultActivationUsecase) Activate(ctx context.Context, req domain.ActivationRequest) (*domain.ActivationResult, error) {
	cfg, err := uc.Config.GetCommissionConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load commission config: %w", err)
	}
	pkg, err := cfg.Package(req.PackageCode)
	if err != nil {
		uc.countActivation(req.PackageCode, "unknown_package")
		return nil, err
	}
	user, err := uc.Store.Users().GetUser(ctx, req.UserID)
	if err != nil {
		uc.countActivation(req.PackageCode, "unknown_user")
		return nil, fmt.Errorf("activate user %s: %w", req.UserID, err)
	}

	result := &domain.ActivationResult{}
	err = uc.Store.InTx(ctx, func(tx domain.Store) error {
		created, err := insertMarker(ctx, tx, req.UserID, req.PackageCode, req.Source)
		if err != nil {
			return fmt.Errorf("insert activation marker: %w", err)
		}
		if !created {
			return nil
		}
		result.Created = true

		bonuses, err := uc.applyBonuses(ctx, tx, cfg, pkg, user, req.Source)
		if err != nil {
			return err
		}
		result.Bonuses = bonuses

		for _, poolType := range pkg.Pools {
			pool, err := cfg.Pool(poolType)
			if err != nil {
				return err
			}
			account, _, err := uc.placement(tx).OpenAccount(ctx, domain.OpenAccountInput{
				OwnerUserID: req.UserID,
				PoolType:    poolType,
				EntryAmount: pkg.BaseAmount,
				Source:      req.Source,
			}, pool)
			if err != nil {
				return fmt.Errorf("open %s account: %w", poolType, err)
			}
			result.Pools = append(result.Pools, account)

			dist, err := uc.distributeAccount(ctx, tx, cfg, pkg, pool, account)
			if err != nil {
				return fmt.Errorf("distribute %s: %w", poolType, err)
			}
			result.Payouts = append(result.Payouts, dist.Payouts...)
		}
		return nil
	})
	if err != nil {
		uc.countActivation(req.PackageCode, "error")
		uc.Logger.Error("activation failed",
			slog.String("user_id", req.UserID),
			slog.String("package_code", req.PackageCode),
			slog.String("source", req.Source.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if !result.Created {
		uc.countActivation(req.PackageCode, "duplicate")
		uc.Logger.Info("activation already processed",
			slog.String("user_id", req.UserID),
			slog.String("package_code", req.PackageCode),
			slog.String("source", req.Source.String()),
		)
		return result, nil
	}

	uc.countActivation(req.PackageCode, "created")
	uc.recordBonuses(pkg.Key, result.Bonuses)
	uc.recordPayouts(result.Payouts)
	uc.Logger.Info("activation processed",
		slog.String("user_id", req.UserID),
		slog.String("package_code", req.PackageCode),
		slog.String("source", req.Source.String()),
		slog.Int("bonuses", len(result.Bonuses)),
		slog.Int("pools", len(result.Pools)),
		slog.Int("payouts", len(result.Payouts)),
	)
	return result, nil
}

func (uc *DefaultActivationUsecase) applyBonuses(
	ctx context.Context,
	tx domain.Store,
	cfg *domain.CommissionConfig,
	pkg domain.PackageConfig,
	user *domain.Account,
	source domain.SourceRef,
) ([]domain.BonusResult, error) {
	instructions := commission.ResolveBonuses(cfg, pkg, user)
	results := make([]domain.BonusResult, 0, len(instructions))
	for _, b := range instructions {
		entry, err := uc.ledger(tx).Credit(ctx, domain.PostingInput{
			UserID: b.RecipientID,
			Amount: b.Amount,
			Type:   b.Type,
			Meta: domain.EntryMeta{
				PackageCode: pkg.Code,
				Key:         pkg.Key,
			},
			Source:   source,
			Withhold: b.Withhold,
		})
		if err != nil {
			return nil, fmt.Errorf("credit %s to %s: %w", b.Type, b.RecipientID, err)
		}
		results = append(results, domain.BonusResult{
			RecipientID: b.RecipientID,
			Type:        b.Type,
			Amount:      entry.Amount,
			EntryID:     entry.ID,
		})
	}
	return results, nil
}

func (uc *DefaultActivationUsecase) countActivation(packageCode, outcome string) {
	if uc.Metrics != nil {
		uc.Metrics.ActivationsTotal.WithLabelValues(packageCode, outcome).Inc()
	}
}

func (uc *DefaultActivationUsecase) recordBonuses(key string, bonuses []domain.BonusResult) {
	if uc.Metrics == nil {
		return
	}
	for _, b := range bonuses {
		uc.Metrics.BonusesTotal.WithLabelValues(string(b.Type), key).Inc()
		uc.Metrics.BonusAmountTotal.WithLabelValues(string(b.Type), key).Add(b.Amount.InexactFloat64())
	}
}
