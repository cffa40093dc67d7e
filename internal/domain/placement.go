package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PoolType string

const (
	PoolFiveLevel150  PoolType = "FIVE_LEVEL_150"
	PoolThreeLevel150 PoolType = "THREE_LEVEL_150"
	PoolThreeLevel50  PoolType = "THREE_LEVEL_50"
)

type PlacementStatus string

const (
	PlacementActive PlacementStatus = "ACTIVE"
	PlacementClosed PlacementStatus = "CLOSED"
)

// PlacementAccount is one user's node inside one pool's placement tree.
// ParentAccountID points at the node that placed it, which is not necessarily the sponsor.
type PlacementAccount struct {
	ID              string
	OwnerUserID     string
	PoolType        PoolType
	ParentAccountID *string
	Source          SourceRef
	Status          PlacementStatus
	EntryAmount     decimal.Decimal
	CreatedAt       time.Time
}

type OpenAccountInput struct {
	OwnerUserID string
	PoolType    PoolType
	EntryAmount decimal.Decimal
	Source      SourceRef
}

type PlacementRepository interface {
	// Create inserts the account unless one already exists for
	// (owner, pool type, source type, source id). It reports whether a row was inserted.
	Create(ctx context.Context, account *PlacementAccount) (bool, error)
	GetByID(ctx context.Context, accountID string) (*PlacementAccount, error)
	GetByKey(ctx context.Context, ownerUserID string, poolType PoolType, source SourceRef) (*PlacementAccount, error)
	// FindAnchor returns the earliest ACTIVE account of the owner in the pool, or ErrNotFound.
	FindAnchor(ctx context.Context, ownerUserID string, poolType PoolType) (*PlacementAccount, error)
	ListChildren(ctx context.Context, parentAccountID string) ([]*PlacementAccount, error)
	// LockForPlacement locks the parent row so concurrent placements under it serialize.
	LockForPlacement(ctx context.Context, accountID string) (*PlacementAccount, error)
	CountChildren(ctx context.Context, parentAccountID string) (int64, error)
	UpdateStatus(ctx context.Context, accountID string, status PlacementStatus) error
}

type PlacementUsecase interface {
	OpenAccount(ctx context.Context, in OpenAccountInput, pool PoolConfig) (*PlacementAccount, bool, error)
	AncestorChain(ctx context.Context, account *PlacementAccount, maxDepth int) ([]string, error)
	SponsorChain(ctx context.Context, userID string, maxDepth int) ([]string, error)
	CloseAccount(ctx context.Context, accountID string) error
}
