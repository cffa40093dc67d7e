package repository

import (
	"context"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"gorm.io/gorm"
)

type DefaultStore struct {
	DB *gorm.DB
}

func NewDefaultStore(db *gorm.DB) *DefaultStore {
	return &DefaultStore{DB: db}
}

func (s *DefaultStore) Ledger() domain.LedgerRepository {
	return NewDefaultLedgerRepository(s.DB)
}

func (s *DefaultStore) Placements() domain.PlacementRepository {
	return NewDefaultPlacementRepository(s.DB)
}

func (s *DefaultStore) Progress() domain.MatrixProgressRepository {
	return NewDefaultMatrixProgressRepository(s.DB)
}

func (s *DefaultStore) Activations() domain.ActivationRepository {
	return NewDefaultActivationRepository(s.DB)
}

func (s *DefaultStore) Audits() domain.DistributionAuditRepository {
	return NewDefaultDistributionAuditRepository(s.DB)
}

func (s *DefaultStore) Users() domain.IdentityProvider {
	return NewDefaultUserRepository(s.DB)
}

// InTx opens a transaction, or a savepoint when s is already bound to one.
func (s *DefaultStore) InTx(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DefaultStore{DB: tx})
	})
}
