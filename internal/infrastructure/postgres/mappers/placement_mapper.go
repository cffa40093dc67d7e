package mappers

import (
	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func ToDomainPlacementAccount(model *models.PlacementAccountModel) *domain.PlacementAccount {
	return &domain.PlacementAccount{
		ID:              model.ID,
		OwnerUserID:     model.OwnerUserID,
		PoolType:        model.PoolType,
		ParentAccountID: model.ParentAccountID,
		Source: domain.SourceRef{
			Type: model.SourceType,
			ID:   model.SourceID,
		},
		Status:      model.Status,
		EntryAmount: model.EntryAmount,
		CreatedAt:   model.CreatedAt,
	}
}

func ToGORMPlacementAccount(account *domain.PlacementAccount) *models.PlacementAccountModel {
	return &models.PlacementAccountModel{
		ID:              account.ID,
		OwnerUserID:     account.OwnerUserID,
		PoolType:        account.PoolType,
		SourceType:      account.Source.Type,
		SourceID:        account.Source.ID,
		ParentAccountID: account.ParentAccountID,
		Status:          account.Status,
		EntryAmount:     account.EntryAmount,
		CreatedAt:       account.CreatedAt,
	}
}

func ToDomainMatrixProgress(model *models.MatrixProgressModel) *domain.MatrixProgress {
	progress := &domain.MatrixProgress{
		UserID:         model.UserID,
		PoolType:       model.PoolType,
		TotalEarned:    model.TotalEarned,
		LevelReached:   model.LevelReached,
		PerLevelCount:  model.PerLevelCount.Data(),
		PerLevelEarned: model.PerLevelEarned.Data(),
	}
	if progress.PerLevelCount == nil {
		progress.PerLevelCount = make(map[int]int64)
	}
	if progress.PerLevelEarned == nil {
		progress.PerLevelEarned = make(map[int]decimal.Decimal)
	}
	return progress
}

func ToGORMMatrixProgress(progress *domain.MatrixProgress) *models.MatrixProgressModel {
	return &models.MatrixProgressModel{
		UserID:         progress.UserID,
		PoolType:       progress.PoolType,
		TotalEarned:    progress.TotalEarned,
		LevelReached:   progress.LevelReached,
		PerLevelCount:  datatypes.NewJSONType(progress.PerLevelCount),
		PerLevelEarned: datatypes.NewJSONType(progress.PerLevelEarned),
	}
}
