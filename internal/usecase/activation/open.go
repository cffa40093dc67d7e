package activation

import (
	"context"
	"fmt"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
)

// OpenPools places the user into every pool of the package without paying
// anything. Payouts for the new accounts are driven separately through
// DistributeSource. Accounts that already exist are returned as they are.
func (uc *DefaultActivationUsecase) OpenPools(ctx context.Context, req domain.ActivationRequest) ([]*domain.PlacementAccount, error) {
	cfg, err := uc.Config.GetCommissionConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load commission config: %w", err)
	}
	pkg, err := cfg.Package(req.PackageCode)
	if err != nil {
		return nil, err
	}

	var accounts []*domain.PlacementAccount
	err = uc.Store.InTx(ctx, func(tx domain.Store) error {
		accounts = accounts[:0]
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
			accounts = append(accounts, account)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}
