package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultLedgerRepository struct {
	DB *gorm.DB
}

func NewDefaultLedgerRepository(db *gorm.DB) *DefaultLedgerRepository {
	return &DefaultLedgerRepository{DB: db}
}

func (r *DefaultLedgerRepository) GetOrCreateAccount(ctx context.Context, userID string) (*domain.LedgerAccount, error) {
	account, err := r.GetAccount(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err := r.insertIfMissing(ctx, userID); err != nil {
		return nil, err
	}
	// Either our insert or a concurrent one won; the row exists now.
	return r.GetAccount(ctx, userID)
}

func (r *DefaultLedgerRepository) LockAccount(ctx context.Context, userID string) (*domain.LedgerAccount, error) {
	if err := r.insertIfMissing(ctx, userID); err != nil {
		return nil, err
	}

	var model models.LedgerAccountModel
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("lock ledger account %s: %w", userID, err)
	}
	return mappers.ToDomainLedgerAccount(&model), nil
}

func (r *DefaultLedgerRepository) GetAccount(ctx context.Context, userID string) (*domain.LedgerAccount, error) {
	var model models.LedgerAccountModel
	if err := r.DB.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return mappers.ToDomainLedgerAccount(&model), nil
}

func (r *DefaultLedgerRepository) insertIfMissing(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	model := models.LedgerAccountModel{
		UserID:              userID,
		MainBalance:         decimal.Zero,
		WithdrawableBalance: decimal.Zero,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error; err != nil {
		return fmt.Errorf("create ledger account %s: %w", userID, err)
	}
	return nil
}

func (r *DefaultLedgerRepository) UpdateBalances(ctx context.Context, account *domain.LedgerAccount) error {
	res := r.DB.WithContext(ctx).
		Model(&models.LedgerAccountModel{}).
		Where("user_id = ?", account.UserID).
		Updates(map[string]interface{}{
			"main_balance":         account.MainBalance,
			"withdrawable_balance": account.WithdrawableBalance,
			"updated_at":           account.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DefaultLedgerRepository) AppendEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	return r.DB.WithContext(ctx).Create(mappers.ToGORMLedgerEntry(entry)).Error
}

func (r *DefaultLedgerRepository) ListEntries(
	ctx context.Context,
	userID string,
	filter domain.EntryFilter,
	page, limit int,
) ([]*domain.LedgerEntry, int64, error) {
	var entryModels []models.LedgerEntryModel
	var total int64

	query := r.DB.WithContext(ctx).
		Model(&models.LedgerEntryModel{}).
		Where("user_id = ?", userID)

	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if filter.SourceType != "" {
		query = query.Where("source_type = ?", filter.SourceType)
	}
	if filter.SourceID != "" {
		query = query.Where("source_id = ?", filter.SourceID)
	}
	if !filter.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filter.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count entries: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	offset := (page - 1) * limit
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&entryModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find entries: %w", err)
	}

	entries := make([]*domain.LedgerEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = mappers.ToDomainLedgerEntry(&entryModels[i])
	}
	return entries, total, nil
}
