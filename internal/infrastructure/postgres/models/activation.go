package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ActivationMarkerModel struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	UserID      string `gorm:"size:64;not null;uniqueIndex:idx_activation_key,priority:1"`
	PackageCode string `gorm:"size:64;not null;uniqueIndex:idx_activation_key,priority:2"`
	SourceType  string `gorm:"size:64;not null;uniqueIndex:idx_activation_key,priority:3"`
	SourceID    string `gorm:"size:128;not null;uniqueIndex:idx_activation_key,priority:4"`
	CreatedAt   time.Time
}

type DistributionAuditModel struct {
	ID          string          `gorm:"primaryKey;type:uuid"`
	SourceType  string          `gorm:"size:64;not null;uniqueIndex:idx_distribution_key,priority:1"`
	SourceID    string          `gorm:"size:128;not null;uniqueIndex:idx_distribution_key,priority:2"`
	PoolType    string          `gorm:"size:32;not null;uniqueIndex:idx_distribution_key,priority:3"`
	PayoutCount int             `gorm:"not null"`
	TotalPaid   decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	CreatedAt   time.Time
}
