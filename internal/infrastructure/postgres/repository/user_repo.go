package repository

import (
	"context"
	"errors"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

// DefaultUserRepository reads sponsor links and classification from the identity service's users table.
type DefaultUserRepository struct {
	DB *gorm.DB
}

func NewDefaultUserRepository(db *gorm.DB) *DefaultUserRepository {
	return &DefaultUserRepository{DB: db}
}

func (r *DefaultUserRepository) GetUser(ctx context.Context, userID string) (*domain.Account, error) {
	var model models.UserModel
	if err := r.DB.WithContext(ctx).First(&model, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &domain.Account{
		UserID:         model.ID,
		SponsorID:      model.SponsorID,
		IsIntermediary: model.IsIntermediary,
	}, nil
}
