package activation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase/commission"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LevelDistribution is the input of one level payout run for (Source, PoolType).
type LevelDistribution struct {
	BaseAmount decimal.Decimal
	Table      domain.LevelTable
	Ancestors  []string
	PayoutType domain.EntryType
	PoolType   domain.PoolType
	Source     domain.SourceRef
	Eligible   commission.Eligibility
}

// DistributeLevels credits every ancestor its level amount and updates their
// progress. It runs at most once per (source, pool type): later calls return
// Skipped=true and post nothing.
func (uc *DefaultActivationUsecase) DistributeLevels(ctx context.Context, in LevelDistribution) (*domain.DistributionResult, error) {
	var result *domain.DistributionResult
	err := uc.Store.InTx(ctx, func(tx domain.Store) error {
		var err error
		result, err = uc.distributeLevels(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.recordDistribution(in.PoolType, result)
	return result, nil
}

func (uc *DefaultActivationUsecase) distributeLevels(ctx context.Context, tx domain.Store, in LevelDistribution) (*domain.DistributionResult, error) {
	payoutType := in.PayoutType
	if payoutType == "" {
		payoutType = domain.EntryMatrixPayout
	}

	instructions, skips, err := commission.ComputeLevelPayouts(in.BaseAmount, in.Table, in.Ancestors, in.Eligible)
	if err != nil {
		return nil, fmt.Errorf("compute level payouts: %w", err)
	}

	recorded, err := tx.Audits().TryRecord(ctx, &domain.DistributionAudit{
		ID:          uuid.New().String(),
		Source:      in.Source,
		PoolType:    in.PoolType,
		PayoutCount: len(instructions),
		TotalPaid:   commission.Total(instructions),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("record distribution audit: %w", err)
	}
	if !recorded {
		uc.Logger.Info("distribution already applied",
			slog.String("source", in.Source.String()),
			slog.String("pool_type", string(in.PoolType)),
		)
		return &domain.DistributionResult{Skipped: true}, nil
	}

	for _, skip := range skips {
		uc.Logger.Debug("level payout skipped",
			slog.String("recipient_id", skip.RecipientID),
			slog.Int("level", skip.Level),
			slog.String("reason", string(skip.Reason)),
			slog.String("pool_type", string(in.PoolType)),
		)
		if uc.Metrics != nil {
			uc.Metrics.PayoutsSkippedTotal.WithLabelValues(string(in.PoolType), string(skip.Reason)).Inc()
		}
	}

	base := domain.RoundMoney(in.BaseAmount)
	payouts := make([]domain.PayoutResult, 0, len(instructions))
	for _, p := range instructions {
		meta := domain.EntryMeta{
			Level:      p.Level,
			PoolType:   in.PoolType,
			Mode:       p.Mode,
			BaseAmount: &base,
		}
		if p.Mode == domain.LevelPercent {
			rate := p.Rate
			meta.Rate = &rate
		}
		entry, err := uc.ledger(tx).Credit(ctx, domain.PostingInput{
			UserID: p.RecipientID,
			Amount: p.Amount,
			Type:   payoutType,
			Meta:   meta,
			Source: in.Source,
		})
		if err != nil {
			return nil, fmt.Errorf("credit level %d to %s: %w", p.Level, p.RecipientID, err)
		}

		progress, err := tx.Progress().Lock(ctx, p.RecipientID, in.PoolType)
		if err != nil {
			return nil, err
		}
		progress.Apply(p.Level, entry.Amount)
		if err := tx.Progress().Save(ctx, progress); err != nil {
			return nil, fmt.Errorf("save progress of %s: %w", p.RecipientID, err)
		}

		payouts = append(payouts, domain.PayoutResult{
			PayoutInstruction: p,
			EntryID:           entry.ID,
			PoolType:          in.PoolType,
		})
	}
	return &domain.DistributionResult{Payouts: payouts}, nil
}

// distributeAccount resolves the level table and ancestors of a placement
// account and runs the level distribution for its source.
func (uc *DefaultActivationUsecase) distributeAccount(
	ctx context.Context,
	tx domain.Store,
	cfg *domain.CommissionConfig,
	pkg domain.PackageConfig,
	pool domain.PoolConfig,
	account *domain.PlacementAccount,
) (*domain.DistributionResult, error) {
	table, ok := cfg.LevelTable(pool.Type, pkg.Key)
	if !ok {
		// no audit row is written, so the source can be re-driven once the table exists
		return nil, fmt.Errorf("%w: no level table in pool %s for key %q", domain.ErrInvalidConfig, pool.Type, pkg.Key)
	}
	depth := pool.Depth
	if depth == 0 || depth > len(table.Values) {
		depth = len(table.Values)
	}

	ancestors, err := uc.placement(tx).AncestorChain(ctx, account, depth)
	if err != nil {
		return nil, fmt.Errorf("ancestor chain of %s: %w", account.ID, err)
	}
	return uc.distributeLevels(ctx, tx, LevelDistribution{
		BaseAmount: account.EntryAmount,
		Table:      table,
		Ancestors:  ancestors,
		PayoutType: domain.EntryMatrixPayout,
		PoolType:   pool.Type,
		Source:     account.Source,
		Eligible:   eligibility(ctx, tx, cfg),
	})
}

// DistributeSource re-drives the level payouts of an already opened
// placement account. It is a no-op when the payouts were applied before.
func (uc *DefaultActivationUsecase) DistributeSource(ctx context.Context, req domain.DistributeRequest) (*domain.DistributionResult, error) {
	cfg, err := uc.Config.GetCommissionConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load commission config: %w", err)
	}
	pkg, err := cfg.Package(req.PackageCode)
	if err != nil {
		return nil, err
	}
	pool, err := cfg.Pool(req.PoolType)
	if err != nil {
		return nil, err
	}

	var result *domain.DistributionResult
	err = uc.Store.InTx(ctx, func(tx domain.Store) error {
		account, err := tx.Placements().GetByKey(ctx, req.OwnerID, req.PoolType, req.Source)
		if err != nil {
			return fmt.Errorf("placement account of %s in %s for %s: %w", req.OwnerID, req.PoolType, req.Source.String(), err)
		}
		result, err = uc.distributeAccount(ctx, tx, cfg, pkg, pool, account)
		return err
	})
	if err != nil {
		if uc.Metrics != nil {
			uc.Metrics.DistributionsTotal.WithLabelValues(string(req.PoolType), "error").Inc()
		}
		return nil, err
	}
	uc.recordDistribution(req.PoolType, result)
	return result, nil
}

func (uc *DefaultActivationUsecase) recordDistribution(poolType domain.PoolType, result *domain.DistributionResult) {
	if uc.Metrics == nil {
		return
	}
	if result.Skipped {
		uc.Metrics.DistributionsTotal.WithLabelValues(string(poolType), "already_applied").Inc()
		return
	}
	uc.Metrics.DistributionsTotal.WithLabelValues(string(poolType), "applied").Inc()
	uc.recordPayouts(result.Payouts)
}

func (uc *DefaultActivationUsecase) recordPayouts(payouts []domain.PayoutResult) {
	if uc.Metrics == nil {
		return
	}
	for _, p := range payouts {
		uc.Metrics.PayoutsTotal.WithLabelValues(string(p.PoolType), strconv.Itoa(p.Level)).Inc()
		uc.Metrics.PayoutAmountTotal.WithLabelValues(string(p.PoolType)).Add(p.Amount.InexactFloat64())
	}
}
