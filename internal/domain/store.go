package domain

import "context"

// Store groups the repositories that must change together inside one transaction.
type Store interface {
	Ledger() LedgerRepository
	Placements() PlacementRepository
	Progress() MatrixProgressRepository
	Activations() ActivationRepository
	Audits() DistributionAuditRepository
	Users() IdentityProvider
	// InTx runs fn against a Store bound to a single transaction. Nested calls use savepoints.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
