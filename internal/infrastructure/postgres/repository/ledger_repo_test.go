package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-matrix-service/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateAccount(t *testing.T) {
	repo := repository.NewDefaultLedgerRepository(testutil.NewDB(t))
	ctx := context.Background()

	_, err := repo.GetAccount(ctx, "U")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	first, err := repo.GetOrCreateAccount(ctx, "U")
	require.NoError(t, err)
	assert.True(t, first.MainBalance.IsZero())

	again, err := repo.GetOrCreateAccount(ctx, "U")
	require.NoError(t, err)
	assert.Equal(t, first.UserID, again.UserID)
}

func TestStoreRollsBackFailedTransaction(t *testing.T) {
	store := repository.NewDefaultStore(testutil.NewDB(t))
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.InTx(ctx, func(tx domain.Store) error {
		account, err := tx.Ledger().LockAccount(ctx, "U")
		if err != nil {
			return err
		}
		account.MainBalance = decimal.NewFromInt(10)
		account.UpdatedAt = time.Now().UTC()
		if err := tx.Ledger().UpdateBalances(ctx, account); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Ledger().GetAccount(ctx, "U")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListEntriesFiltersAndPages(t *testing.T) {
	repo := repository.NewDefaultLedgerRepository(testutil.NewDB(t))
	ctx := context.Background()
	start := time.Now().UTC()

	entries := []struct {
		entryType domain.EntryType
		sourceID  string
	}{
		{domain.EntryMatrixPayout, "1"},
		{domain.EntryMatrixPayout, "2"},
		{domain.EntryDirectBonus, "1"},
	}
	for i, e := range entries {
		require.NoError(t, repo.AppendEntry(ctx, &domain.LedgerEntry{
			ID:           uuid.New().String(),
			Reference:    "ref" + e.sourceID,
			UserID:       "U",
			Type:         e.entryType,
			Amount:       decimal.NewFromInt(5),
			BalanceAfter: decimal.NewFromInt(int64(5 * (i + 1))),
			Meta:         domain.EntryMeta{Schema: domain.EntryMetaSchemaVersion, Level: i + 1},
			Source:       domain.SourceRef{Type: "order", ID: e.sourceID},
			CreatedAt:    start.Add(time.Duration(i) * time.Second),
		}))
	}

	all, total, err := repo.ListEntries(ctx, "U", domain.EntryFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 2)
	assert.Equal(t, domain.EntryDirectBonus, all[0].Type)
	assert.Equal(t, 2, all[1].Meta.Level)

	payouts, total, err := repo.ListEntries(ctx, "U", domain.EntryFilter{
		Types:    []domain.EntryType{domain.EntryMatrixPayout},
		SourceID: "1",
	}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, payouts, 1)
	assert.Equal(t, "order", payouts[0].Source.Type)
}
