package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/metrics"
	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
	"github.com/shopspring/decimal"
)

const entryReferenceSize = 15

type DefaultLedgerUsecase struct {
	Store   domain.Store
	Metrics *metrics.CommissionMetrics
	newRef  func() string
}

func NewDefaultLedgerUsecase(store domain.Store, commissionMetrics *metrics.CommissionMetrics) (*DefaultLedgerUsecase, error) {
	gen, err := nanoid.Standard(entryReferenceSize)
	if err != nil {
		return nil, fmt.Errorf("entry reference generator: %w", err)
	}
	return &DefaultLedgerUsecase{
		Store:   store,
		Metrics: commissionMetrics,
		newRef:  gen,
	}, nil
}

// WithStore returns a copy bound to store, typically a transaction.
func (uc *DefaultLedgerUsecase) WithStore(store domain.Store) *DefaultLedgerUsecase {
	bound := *uc
	bound.Store = store
	return &bound
}

func (uc *DefaultLedgerUsecase) GetOrCreate(ctx context.Context, userID string) (*domain.LedgerAccount, error) {
	return uc.Store.Ledger().GetOrCreateAccount(ctx, userID)
}

// Credit adds a positive amount to the main balance, and to the withdrawable
// balance unless the posting is withheld. Balance update and entry append
// happen in one transaction.
func (uc *DefaultLedgerUsecase) Credit(ctx context.Context, in domain.PostingInput) (*domain.LedgerEntry, error) {
	if in.Type.IsDebit() {
		uc.countError("invalid_type")
		return nil, fmt.Errorf("%w: %s cannot be credited", domain.ErrInvalidEntryType, in.Type)
	}
	return uc.post(ctx, in, func(account *domain.LedgerAccount, amount decimal.Decimal) error {
		account.MainBalance = account.MainBalance.Add(amount)
		if !in.Withhold {
			account.WithdrawableBalance = account.WithdrawableBalance.Add(amount)
		}
		return nil
	})
}

// Debit draws from both balances and fails with ErrInsufficientBalance
// when the withdrawable balance does not cover the amount.
func (uc *DefaultLedgerUsecase) Debit(ctx context.Context, in domain.PostingInput) (*domain.LedgerEntry, error) {
	if !in.Type.IsDebit() {
		uc.countError("invalid_type")
		return nil, fmt.Errorf("%w: %s cannot be debited", domain.ErrInvalidEntryType, in.Type)
	}
	return uc.post(ctx, in, func(account *domain.LedgerAccount, amount decimal.Decimal) error {
		if account.WithdrawableBalance.LessThan(amount) {
			return fmt.Errorf("%w: user %s has %s withdrawable, requested %s",
				domain.ErrInsufficientBalance, account.UserID, account.WithdrawableBalance.StringFixed(domain.MoneyScale), amount.StringFixed(domain.MoneyScale))
		}
		account.MainBalance = account.MainBalance.Sub(amount)
		account.WithdrawableBalance = account.WithdrawableBalance.Sub(amount)
		return nil
	})
}

func (uc *DefaultLedgerUsecase) post(
	ctx context.Context,
	in domain.PostingInput,
	apply func(account *domain.LedgerAccount, amount decimal.Decimal) error,
) (*domain.LedgerEntry, error) {
	amount := domain.RoundMoney(in.Amount)
	if !amount.IsPositive() {
		uc.countError("invalid_amount")
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, in.Amount.String())
	}
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: empty user id", domain.ErrConstraintViolation)
	}

	var entry *domain.LedgerEntry
	err := uc.Store.InTx(ctx, func(tx domain.Store) error {
		account, err := tx.Ledger().LockAccount(ctx, in.UserID)
		if err != nil {
			return err
		}
		if err := apply(account, amount); err != nil {
			return err
		}
		now := time.Now().UTC()
		account.UpdatedAt = now
		if err := tx.Ledger().UpdateBalances(ctx, account); err != nil {
			return err
		}

		meta := in.Meta
		meta.Schema = domain.EntryMetaSchemaVersion
		if in.Withhold {
			meta.Withheld = true
		}
		entry = &domain.LedgerEntry{
			ID:           uuid.New().String(),
			Reference:    uc.newRef(),
			UserID:       in.UserID,
			Type:         in.Type,
			Amount:       amount,
			BalanceAfter: account.MainBalance,
			Meta:         meta,
			Source:       in.Source,
			CreatedAt:    now,
		}
		return tx.Ledger().AppendEntry(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			uc.countError("insufficient_balance")
		}
		return nil, err
	}

	if uc.Metrics != nil {
		uc.Metrics.LedgerPostingsTotal.WithLabelValues(string(in.Type)).Inc()
	}
	return entry, nil
}

// GetBalance reports zero balances for users that never had a posting.
func (uc *DefaultLedgerUsecase) GetBalance(ctx context.Context, userID string) (*domain.Balance, error) {
	account, err := uc.Store.Ledger().GetAccount(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Balance{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Balance{
		UserID:              account.UserID,
		MainBalance:         account.MainBalance,
		WithdrawableBalance: account.WithdrawableBalance,
	}, nil
}

func (uc *DefaultLedgerUsecase) ListEntries(ctx context.Context, userID string, filter domain.EntryFilter, page, limit int) ([]*domain.LedgerEntry, int64, error) {
	return uc.Store.Ledger().ListEntries(ctx, userID, filter, page, limit)
}

func (uc *DefaultLedgerUsecase) countError(reason string) {
	if uc.Metrics != nil {
		uc.Metrics.LedgerErrorsTotal.WithLabelValues(reason).Inc()
	}
}
