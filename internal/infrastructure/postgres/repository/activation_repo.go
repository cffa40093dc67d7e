package repository

import (
	"context"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultActivationRepository struct {
	DB *gorm.DB
}

func NewDefaultActivationRepository(db *gorm.DB) *DefaultActivationRepository {
	return &DefaultActivationRepository{DB: db}
}

// TryInsert relies on the unique (user, package, source) index; a conflicting insert affects no rows.
func (r *DefaultActivationRepository) TryInsert(ctx context.Context, marker *domain.ActivationMarker) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(mappers.ToGORMActivationMarker(marker))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DefaultActivationRepository) Exists(ctx context.Context, userID, packageCode string, source domain.SourceRef) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&models.ActivationMarkerModel{}).
		Where("user_id = ? AND package_code = ? AND source_type = ? AND source_id = ?",
			userID, packageCode, source.Type, source.ID).
		Count(&count).Error
	return count > 0, err
}

type DefaultDistributionAuditRepository struct {
	DB *gorm.DB
}

func NewDefaultDistributionAuditRepository(db *gorm.DB) *DefaultDistributionAuditRepository {
	return &DefaultDistributionAuditRepository{DB: db}
}

func (r *DefaultDistributionAuditRepository) TryRecord(ctx context.Context, audit *domain.DistributionAudit) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(mappers.ToGORMDistributionAudit(audit))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *DefaultDistributionAuditRepository) Get(ctx context.Context, source domain.SourceRef, poolType domain.PoolType) (*domain.DistributionAudit, error) {
	var model models.DistributionAuditModel
	if err := r.DB.WithContext(ctx).
		Where("source_type = ? AND source_id = ? AND pool_type = ?", source.Type, source.ID, poolType).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return mappers.ToDomainDistributionAudit(&model), nil
}
