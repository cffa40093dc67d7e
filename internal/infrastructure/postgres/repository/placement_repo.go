package repository

import (
	"context"
	"errors"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultPlacementRepository struct {
	DB *gorm.DB
}

func NewDefaultPlacementRepository(db *gorm.DB) *DefaultPlacementRepository {
	return &DefaultPlacementRepository{DB: db}
}

func (r *DefaultPlacementRepository) Create(ctx context.Context, account *domain.PlacementAccount) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(mappers.ToGORMPlacementAccount(account))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DefaultPlacementRepository) GetByID(ctx context.Context, accountID string) (*domain.PlacementAccount, error) {
	var model models.PlacementAccountModel
	if err := r.DB.WithContext(ctx).First(&model, "id = ?", accountID).Error; err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainPlacementAccount(&model), nil
}

func (r *DefaultPlacementRepository) GetByKey(
	ctx context.Context,
	ownerUserID string,
	poolType domain.PoolType,
	source domain.SourceRef,
) (*domain.PlacementAccount, error) {
	var model models.PlacementAccountModel
	if err := r.DB.WithContext(ctx).
		Where("owner_user_id = ? AND pool_type = ? AND source_type = ? AND source_id = ?",
			ownerUserID, poolType, source.Type, source.ID).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainPlacementAccount(&model), nil
}

func (r *DefaultPlacementRepository) FindAnchor(ctx context.Context, ownerUserID string, poolType domain.PoolType) (*domain.PlacementAccount, error) {
	var model models.PlacementAccountModel
	res := r.DB.WithContext(ctx).
		Where("owner_user_id = ? AND pool_type = ? AND status = ?", ownerUserID, poolType, domain.PlacementActive).
		Order("created_at ASC").
		Order("id ASC").
		Limit(1).
		Find(&model)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return mappers.ToDomainPlacementAccount(&model), nil
}

func (r *DefaultPlacementRepository) ListChildren(ctx context.Context, parentAccountID string) ([]*domain.PlacementAccount, error) {
	var placementModels []models.PlacementAccountModel
	if err := r.DB.WithContext(ctx).
		Where("parent_account_id = ?", parentAccountID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&placementModels).Error; err != nil {
		return nil, err
	}

	accounts := make([]*domain.PlacementAccount, len(placementModels))
	for i := range placementModels {
		accounts[i] = mappers.ToDomainPlacementAccount(&placementModels[i])
	}
	return accounts, nil
}

func (r *DefaultPlacementRepository) LockForPlacement(ctx context.Context, accountID string) (*domain.PlacementAccount, error) {
	var model models.PlacementAccountModel
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", accountID).Error; err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainPlacementAccount(&model), nil
}

func (r *DefaultPlacementRepository) CountChildren(ctx context.Context, parentAccountID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&models.PlacementAccountModel{}).
		Where("parent_account_id = ?", parentAccountID).
		Count(&count).Error
	return count, err
}

func (r *DefaultPlacementRepository) UpdateStatus(ctx context.Context, accountID string, status domain.PlacementStatus) error {
	res := r.DB.WithContext(ctx).
		Model(&models.PlacementAccountModel{}).
		Where("id = ?", accountID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
