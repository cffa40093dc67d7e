package models

import (
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type LedgerAccountModel struct {
	UserID              string          `gorm:"primaryKey;size:64"`
	MainBalance         decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	WithdrawableBalance decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// LedgerEntryModel rows are append-only.
type LedgerEntryModel struct {
	ID           string                               `gorm:"primaryKey;type:uuid"`
	Reference    string                               `gorm:"size:21;not null;index"`
	UserID       string                               `gorm:"size:64;not null;index:idx_entry_user_created,priority:1"`
	Type         domain.EntryType                     `gorm:"size:32;not null;index"`
	Amount       decimal.Decimal                      `gorm:"type:numeric(20,2);not null"`
	BalanceAfter decimal.Decimal                      `gorm:"type:numeric(20,2);not null"`
	Meta         datatypes.JSONType[domain.EntryMeta] `gorm:"type:jsonb;not null"`
	SourceType   string                               `gorm:"size:64;index:idx_entry_source,priority:1"`
	SourceID     string                               `gorm:"size:128;index:idx_entry_source,priority:2"`
	CreatedAt    time.Time                            `gorm:"index:idx_entry_user_created,priority:2"`
}
