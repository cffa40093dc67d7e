package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultMatrixProgressRepository struct {
	DB *gorm.DB
}

func NewDefaultMatrixProgressRepository(db *gorm.DB) *DefaultMatrixProgressRepository {
	return &DefaultMatrixProgressRepository{DB: db}
}

func (r *DefaultMatrixProgressRepository) Lock(ctx context.Context, userID string, poolType domain.PoolType) (*domain.MatrixProgress, error) {
	empty := mappers.ToGORMMatrixProgress(&domain.MatrixProgress{
		UserID:         userID,
		PoolType:       poolType,
		TotalEarned:    decimal.Zero,
		PerLevelCount:  map[int]int64{},
		PerLevelEarned: map[int]decimal.Decimal{},
	})
	empty.UpdatedAt = time.Now().UTC()
	if err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(empty).Error; err != nil {
		return nil, fmt.Errorf("create matrix progress: %w", err)
	}

	var model models.MatrixProgressModel
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "user_id = ? AND pool_type = ?", userID, poolType).Error; err != nil {
		return nil, fmt.Errorf("lock matrix progress: %w", err)
	}
	return mappers.ToDomainMatrixProgress(&model), nil
}

func (r *DefaultMatrixProgressRepository) Get(ctx context.Context, userID string, poolType domain.PoolType) (*domain.MatrixProgress, error) {
	var model models.MatrixProgressModel
	if err := r.DB.WithContext(ctx).
		First(&model, "user_id = ? AND pool_type = ?", userID, poolType).Error; err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainMatrixProgress(&model), nil
}

func (r *DefaultMatrixProgressRepository) Save(ctx context.Context, progress *domain.MatrixProgress) error {
	model := mappers.ToGORMMatrixProgress(progress)
	return r.DB.WithContext(ctx).
		Model(&models.MatrixProgressModel{}).
		Where("user_id = ? AND pool_type = ?", progress.UserID, progress.PoolType).
		Updates(map[string]interface{}{
			"total_earned":     model.TotalEarned,
			"level_reached":    model.LevelReached,
			"per_level_count":  model.PerLevelCount,
			"per_level_earned": model.PerLevelEarned,
			"updated_at":       time.Now().UTC(),
		}).Error
}
