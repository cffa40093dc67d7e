package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/metrics"
	"github.com/google/uuid"
)

const defaultSpilloverScan = 10000

// DefaultPlacementUsecase reads sponsor links through Store.Users so that
// lookups made during a placement see the same transaction.
type DefaultPlacementUsecase struct {
	Store   domain.Store
	Metrics *metrics.CommissionMetrics
}

func NewDefaultPlacementUsecase(store domain.Store, commissionMetrics *metrics.CommissionMetrics) *DefaultPlacementUsecase {
	return &DefaultPlacementUsecase{
		Store:   store,
		Metrics: commissionMetrics,
	}
}

func (uc *DefaultPlacementUsecase) WithStore(store domain.Store) *DefaultPlacementUsecase {
	bound := *uc
	bound.Store = store
	return &bound
}

// OpenAccount places the owner into the pool tree once per source.
// A repeated call for the same (owner, pool, source) returns the existing
// account and false.
func (uc *DefaultPlacementUsecase) OpenAccount(
	ctx context.Context,
	in domain.OpenAccountInput,
	pool domain.PoolConfig,
) (*domain.PlacementAccount, bool, error) {
	if in.EntryAmount.IsNegative() {
		return nil, false, fmt.Errorf("%w: entry amount %s", domain.ErrInvalidAmount, in.EntryAmount.String())
	}
	if pool.FanOut < 1 {
		return nil, false, fmt.Errorf("%w: pool %s fan_out must be positive", domain.ErrInvalidConfig, pool.Type)
	}

	var (
		account   *domain.PlacementAccount
		created   bool
		placement string
	)
	err := uc.Store.InTx(ctx, func(tx domain.Store) error {
		existing, err := tx.Placements().GetByKey(ctx, in.OwnerUserID, in.PoolType, in.Source)
		if err == nil {
			account = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		var parentID *string
		parentID, placement, err = uc.choosePlacement(ctx, tx, in.OwnerUserID, pool)
		if err != nil {
			return err
		}

		candidate := &domain.PlacementAccount{
			ID:              uuid.New().String(),
			OwnerUserID:     in.OwnerUserID,
			PoolType:        in.PoolType,
			ParentAccountID: parentID,
			Source:          in.Source,
			Status:          domain.PlacementActive,
			EntryAmount:     domain.RoundMoney(in.EntryAmount),
			CreatedAt:       time.Now().UTC(),
		}
		inserted, err := tx.Placements().Create(ctx, candidate)
		if err != nil {
			return err
		}
		if !inserted {
			// a concurrent opener committed the same key first
			account, err = tx.Placements().GetByKey(ctx, in.OwnerUserID, in.PoolType, in.Source)
			return err
		}
		account = candidate
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created && uc.Metrics != nil {
		uc.Metrics.PlacementsTotal.WithLabelValues(string(in.PoolType), placement).Inc()
	}
	return account, created, nil
}

// choosePlacement returns the parent for a new account of ownerID and a
// label describing how it was found: root, anchor or spillover.
func (uc *DefaultPlacementUsecase) choosePlacement(
	ctx context.Context,
	tx domain.Store,
	ownerID string,
	pool domain.PoolConfig,
) (*string, string, error) {
	anchor, err := uc.findAnchor(ctx, tx, ownerID, pool.Type)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "root", nil
	}
	if err != nil {
		return nil, "", err
	}

	parent, err := uc.spillover(ctx, tx, anchor, ownerID, pool)
	if err != nil {
		return nil, "", err
	}
	if parent.ID == anchor.ID {
		return &parent.ID, "anchor", nil
	}
	return &parent.ID, "spillover", nil
}

// findAnchor walks the sponsor chain upwards and returns the earliest active
// account of the nearest sponsor that already sits in the pool.
func (uc *DefaultPlacementUsecase) findAnchor(
	ctx context.Context,
	tx domain.Store,
	ownerID string,
	poolType domain.PoolType,
) (*domain.PlacementAccount, error) {
	visited := map[string]struct{}{ownerID: {}}
	user, err := tx.Users().GetUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	next := user.SponsorID
	for next != nil {
		sponsorID := *next
		if _, seen := visited[sponsorID]; seen {
			break
		}
		visited[sponsorID] = struct{}{}

		anchor, err := tx.Placements().FindAnchor(ctx, sponsorID, poolType)
		if err == nil {
			return anchor, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		sponsor, err := tx.Users().GetUser(ctx, sponsorID)
		if errors.Is(err, domain.ErrUserNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		next = sponsor.SponsorID
	}
	return nil, domain.ErrNotFound
}

// spillover searches the anchor's subtree breadth-first, oldest children
// first, for the first active node with a free slot. Nodes owned by ownerID
// and their subtrees are skipped so nobody is placed under themselves.
func (uc *DefaultPlacementUsecase) spillover(
	ctx context.Context,
	tx domain.Store,
	anchor *domain.PlacementAccount,
	ownerID string,
	pool domain.PoolConfig,
) (*domain.PlacementAccount, error) {
	limit := pool.MaxSpilloverScan
	if limit <= 0 {
		limit = defaultSpilloverScan
	}
	fanOut := int64(pool.FanOut)

	queue := []*domain.PlacementAccount{anchor}
	visited := map[string]struct{}{}
	scanned := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if _, seen := visited[node.ID]; seen {
			continue
		}
		visited[node.ID] = struct{}{}
		if node.OwnerUserID == ownerID {
			continue
		}
		scanned++
		if scanned > limit {
			break
		}

		if node.Status == domain.PlacementActive {
			count, err := tx.Placements().CountChildren(ctx, node.ID)
			if err != nil {
				return nil, err
			}
			if count < fanOut {
				locked, err := tx.Placements().LockForPlacement(ctx, node.ID)
				if err != nil {
					return nil, err
				}
				// recount under the lock
				count, err = tx.Placements().CountChildren(ctx, locked.ID)
				if err != nil {
					return nil, err
				}
				if count < fanOut && locked.Status == domain.PlacementActive {
					return locked, nil
				}
			}
		}

		children, err := tx.Placements().ListChildren(ctx, node.ID)
		if err != nil {
			return nil, err
		}
		queue = append(queue, children...)
	}
	return nil, fmt.Errorf("%w: pool %s under account %s after %d nodes",
		domain.ErrPlacementCapacityExceeded, pool.Type, anchor.ID, scanned)
}

// AncestorChain returns up to maxDepth distinct owner user IDs above the
// account, nearest first, excluding the account's own owner. An account with
// no ancestors falls back to the owner's sponsor chain.
func (uc *DefaultPlacementUsecase) AncestorChain(
	ctx context.Context,
	account *domain.PlacementAccount,
	maxDepth int,
) ([]string, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	ancestors := make([]string, 0, maxDepth)
	seenAccounts := map[string]struct{}{account.ID: {}}
	seenUsers := map[string]struct{}{account.OwnerUserID: {}}
	parentID := account.ParentAccountID
	for parentID != nil && len(ancestors) < maxDepth {
		if _, seen := seenAccounts[*parentID]; seen {
			break
		}
		seenAccounts[*parentID] = struct{}{}

		parent, err := uc.Store.Placements().GetByID(ctx, *parentID)
		if errors.Is(err, domain.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if _, dup := seenUsers[parent.OwnerUserID]; !dup {
			seenUsers[parent.OwnerUserID] = struct{}{}
			ancestors = append(ancestors, parent.OwnerUserID)
		}
		parentID = parent.ParentAccountID
	}

	if len(ancestors) == 0 {
		return uc.SponsorChain(ctx, account.OwnerUserID, maxDepth)
	}
	return ancestors, nil
}

// SponsorChain follows sponsor links upwards from userID, stopping at the
// first missing user, a repeated user or maxDepth entries.
func (uc *DefaultPlacementUsecase) SponsorChain(ctx context.Context, userID string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		return nil, nil
	}
	users := uc.Store.Users()
	user, err := users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	chain := make([]string, 0, maxDepth)
	visited := map[string]struct{}{userID: {}}
	next := user.SponsorID
	for next != nil && len(chain) < maxDepth {
		sponsorID := *next
		if _, seen := visited[sponsorID]; seen {
			break
		}
		visited[sponsorID] = struct{}{}

		sponsor, err := users.GetUser(ctx, sponsorID)
		if errors.Is(err, domain.ErrUserNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, sponsor.UserID)
		next = sponsor.SponsorID
	}
	return chain, nil
}

// CloseAccount stops the account from receiving new children. Existing
// children and ancestor payouts through it are unaffected.
func (uc *DefaultPlacementUsecase) CloseAccount(ctx context.Context, accountID string) error {
	return uc.Store.Placements().UpdateStatus(ctx, accountID, domain.PlacementClosed)
}
