package activation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/shopspring/decimal"
)

// adjustmentMarker is the package code under which applied manual
// adjustments are remembered in the activation marker table.
const adjustmentMarker = "LEDGER_ADJUSTMENT"

type AdjustmentDirection string

const (
	AdjustCredit AdjustmentDirection = "credit"
	AdjustDebit  AdjustmentDirection = "debit"
)

// AdjustmentRequest is an operator correction of one user's balance.
type AdjustmentRequest struct {
	UserID    string              `json:"user_id" validate:"required"`
	Amount    decimal.Decimal     `json:"amount"`
	Direction AdjustmentDirection `json:"direction" validate:"required,oneof=credit debit"`
	Note      string              `json:"note" validate:"max=512"`
	Source    domain.SourceRef    `json:"source"`
}

// ApplyAdjustment posts the correction once per (user, source). A repeated
// request returns nil entry and false.
func (uc *DefaultActivationUsecase) ApplyAdjustment(ctx context.Context, req AdjustmentRequest) (*domain.LedgerEntry, bool, error) {
	var (
		entry   *domain.LedgerEntry
		applied bool
	)
	err := uc.Store.InTx(ctx, func(tx domain.Store) error {
		created, err := insertMarker(ctx, tx, req.UserID, adjustmentMarker, req.Source)
		if err != nil {
			return fmt.Errorf("insert adjustment marker: %w", err)
		}
		if !created {
			return nil
		}

		in := domain.PostingInput{
			UserID: req.UserID,
			Amount: req.Amount,
			Meta:   domain.EntryMeta{Note: req.Note},
			Source: req.Source,
		}
		switch req.Direction {
		case AdjustCredit:
			in.Type = domain.EntryAdjustment
			entry, err = uc.ledger(tx).Credit(ctx, in)
		case AdjustDebit:
			in.Type = domain.EntryAdjustmentDebit
			entry, err = uc.ledger(tx).Debit(ctx, in)
		default:
			err = fmt.Errorf("%w: adjustment direction %q", domain.ErrInvalidEntryType, req.Direction)
		}
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if applied {
		uc.Logger.Info("ledger adjusted",
			slog.String("user_id", req.UserID),
			slog.String("direction", string(req.Direction)),
			slog.String("amount", entry.Amount.StringFixed(domain.MoneyScale)),
			slog.String("source", req.Source.String()),
		)
	}
	return entry, applied, nil
}
