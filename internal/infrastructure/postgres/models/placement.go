package models

import (
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PlacementAccountModel struct {
	ID              string                 `gorm:"primaryKey;type:uuid"`
	OwnerUserID     string                 `gorm:"size:64;not null;uniqueIndex:idx_placement_key,priority:1;index:idx_placement_owner_pool,priority:1"`
	PoolType        domain.PoolType        `gorm:"size:32;not null;uniqueIndex:idx_placement_key,priority:2;index:idx_placement_owner_pool,priority:2"`
	SourceType      string                 `gorm:"size:64;not null;uniqueIndex:idx_placement_key,priority:3"`
	SourceID        string                 `gorm:"size:128;not null;uniqueIndex:idx_placement_key,priority:4"`
	ParentAccountID *string                `gorm:"type:uuid;index"`
	Status          domain.PlacementStatus `gorm:"size:16;not null"`
	EntryAmount     decimal.Decimal        `gorm:"type:numeric(20,2);not null"`
	CreatedAt       time.Time              `gorm:"index"`
}

type MatrixProgressModel struct {
	UserID         string                                      `gorm:"primaryKey;size:64"`
	PoolType       domain.PoolType                             `gorm:"primaryKey;size:32"`
	TotalEarned    decimal.Decimal                             `gorm:"type:numeric(20,2);not null"`
	LevelReached   int                                         `gorm:"not null"`
	PerLevelCount  datatypes.JSONType[map[int]int64]           `gorm:"type:jsonb;not null"`
	PerLevelEarned datatypes.JSONType[map[int]decimal.Decimal] `gorm:"type:jsonb;not null"`
	UpdatedAt      time.Time
}
