package mappers

import (
	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"gorm.io/datatypes"
)

func ToDomainLedgerAccount(model *models.LedgerAccountModel) *domain.LedgerAccount {
	return &domain.LedgerAccount{
		UserID:              model.UserID,
		MainBalance:         model.MainBalance,
		WithdrawableBalance: model.WithdrawableBalance,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

func ToDomainLedgerEntry(model *models.LedgerEntryModel) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:           model.ID,
		Reference:    model.Reference,
		UserID:       model.UserID,
		Type:         model.Type,
		Amount:       model.Amount,
		BalanceAfter: model.BalanceAfter,
		Meta:         model.Meta.Data(),
		Source: domain.SourceRef{
			Type: model.SourceType,
			ID:   model.SourceID,
		},
		CreatedAt: model.CreatedAt,
	}
}

func ToGORMLedgerEntry(entry *domain.LedgerEntry) *models.LedgerEntryModel {
	return &models.LedgerEntryModel{
		ID:           entry.ID,
		Reference:    entry.Reference,
		UserID:       entry.UserID,
		Type:         entry.Type,
		Amount:       entry.Amount,
		BalanceAfter: entry.BalanceAfter,
		Meta:         datatypes.NewJSONType(entry.Meta),
		SourceType:   entry.Source.Type,
		SourceID:     entry.Source.ID,
		CreatedAt:    entry.CreatedAt,
	}
}
