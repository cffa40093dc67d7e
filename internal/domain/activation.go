package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ActivationMarker records that (user, package, source) has been processed.
// Its successful insertion is the gate for every bonus and matrix side effect.
type ActivationMarker struct {
	ID          string
	UserID      string
	PackageCode string
	Source      SourceRef
	CreatedAt   time.Time
}

// DistributionAudit records that matrix payouts for (source, pool) have been applied.
type DistributionAudit struct {
	ID          string
	Source      SourceRef
	PoolType    PoolType
	PayoutCount int
	TotalPaid   decimal.Decimal
	CreatedAt   time.Time
}

type ActivationRepository interface {
	// TryInsert reports false when the marker already exists.
	TryInsert(ctx context.Context, marker *ActivationMarker) (bool, error)
	Exists(ctx context.Context, userID, packageCode string, source SourceRef) (bool, error)
}

type DistributionAuditRepository interface {
	// TryRecord reports false when (source, pool) was already distributed.
	TryRecord(ctx context.Context, audit *DistributionAudit) (bool, error)
	Get(ctx context.Context, source SourceRef, poolType PoolType) (*DistributionAudit, error)
}

type ActivationRequest struct {
	UserID      string    `json:"user_id" validate:"required"`
	PackageCode string    `json:"package_code" validate:"required"`
	Source      SourceRef `json:"source"`
}

type BonusResult struct {
	RecipientID string
	Type        EntryType
	Amount      decimal.Decimal
	EntryID     string
}

type ActivationResult struct {
	Created bool
	Bonuses []BonusResult
	Pools   []*PlacementAccount
	Payouts []PayoutResult
}

type DistributeRequest struct {
	Source   SourceRef `json:"source"`
	PoolType PoolType  `json:"pool_type" validate:"required"`
	OwnerID  string    `json:"owner_id" validate:"required"`
	// PackageCode selects the level table key for the pool.
	PackageCode string `json:"package_code" validate:"required"`
}

type DistributionResult struct {
	Skipped bool
	Payouts []PayoutResult
}

type ActivationUsecase interface {
	TryActivate(ctx context.Context, userID, packageCode string, source SourceRef) (bool, error)
	Activate(ctx context.Context, req ActivationRequest) (*ActivationResult, error)
	OpenPools(ctx context.Context, req ActivationRequest) ([]*PlacementAccount, error)
	DistributeSource(ctx context.Context, req DistributeRequest) (*DistributionResult, error)
	GetProgress(ctx context.Context, userID string, poolType PoolType) (*MatrixProgress, error)
}
