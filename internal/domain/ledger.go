package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryDirectBonus     EntryType = "DIRECT_BONUS"
	EntrySelfBonus       EntryType = "SELF_BONUS"
	EntryMatrixPayout    EntryType = "MATRIX_PAYOUT"
	EntryAdjustment      EntryType = "ADJUSTMENT"
	EntryCommission      EntryType = "COMMISSION"
	EntryWithdrawal      EntryType = "WITHDRAWAL"
	EntryAdjustmentDebit EntryType = "ADJUSTMENT_DEBIT"
)

// IsDebit reports whether entries of this type draw the balance down.
func (t EntryType) IsDebit() bool {
	return t == EntryWithdrawal || t == EntryAdjustmentDebit
}

// EntryMetaSchemaVersion is bumped whenever a field of EntryMeta changes meaning.
const EntryMetaSchemaVersion = 1

// EntryMeta is the typed metadata stored with every ledger entry.
//
// Fields used per entry type (schema 1):
//   - MATRIX_PAYOUT: Level, PoolType, Mode, Rate, BaseAmount
//   - DIRECT_BONUS, SELF_BONUS: PackageCode, Key, Withheld
//   - ADJUSTMENT, ADJUSTMENT_DEBIT, WITHDRAWAL: Note
type EntryMeta struct {
	Schema      int              `json:"schema"`
	Level       int              `json:"level,omitempty"`
	PoolType    PoolType         `json:"pool_type,omitempty"`
	Mode        LevelMode        `json:"mode,omitempty"`
	Rate        *decimal.Decimal `json:"rate,omitempty"`
	BaseAmount  *decimal.Decimal `json:"base_amount,omitempty"`
	PackageCode string           `json:"package_code,omitempty"`
	Key         string           `json:"key,omitempty"`
	Withheld    bool             `json:"withheld,omitempty"`
	Note        string           `json:"note,omitempty"`
}

type LedgerAccount struct {
	UserID              string
	MainBalance         decimal.Decimal
	WithdrawableBalance decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type LedgerEntry struct {
	ID           string
	Reference    string
	UserID       string
	Type         EntryType
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	Meta         EntryMeta
	Source       SourceRef
	CreatedAt    time.Time
}

// PostingInput describes a single credit or debit.
type PostingInput struct {
	UserID   string
	Amount   decimal.Decimal
	Type     EntryType
	Meta     EntryMeta
	Source   SourceRef
	Withhold bool
}

type Balance struct {
	UserID              string
	MainBalance         decimal.Decimal
	WithdrawableBalance decimal.Decimal
}

type EntryFilter struct {
	Types      []EntryType
	SourceType string
	SourceID   string
	DateFrom   time.Time
	DateTo     time.Time
}

type LedgerRepository interface {
	// GetOrCreateAccount is safe under concurrent first access.
	GetOrCreateAccount(ctx context.Context, userID string) (*LedgerAccount, error)
	// LockAccount creates the account if needed and locks its row until the transaction ends.
	LockAccount(ctx context.Context, userID string) (*LedgerAccount, error)
	GetAccount(ctx context.Context, userID string) (*LedgerAccount, error)
	UpdateBalances(ctx context.Context, account *LedgerAccount) error
	AppendEntry(ctx context.Context, entry *LedgerEntry) error
	ListEntries(ctx context.Context, userID string, filter EntryFilter, page, limit int) ([]*LedgerEntry, int64, error)
}

type LedgerUsecase interface {
	GetOrCreate(ctx context.Context, userID string) (*LedgerAccount, error)
	Credit(ctx context.Context, in PostingInput) (*LedgerEntry, error)
	Debit(ctx context.Context, in PostingInput) (*LedgerEntry, error)
	GetBalance(ctx context.Context, userID string) (*Balance, error)
	ListEntries(ctx context.Context, userID string, filter EntryFilter, page, limit int) ([]*LedgerEntry, int64, error)
}
