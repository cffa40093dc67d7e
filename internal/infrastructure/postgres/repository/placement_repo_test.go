package repository_test

import (
	"context"
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

func newAccount(owner string, parent *string, sourceID string, createdAt time.Time) *domain.PlacementAccount {
	return &domain.PlacementAccount{
		ID:              uuid.New().String(),
		OwnerUserID:     owner,
		PoolType:        domain.PoolThreeLevel150,
		ParentAccountID: parent,
		Source:          domain.SourceRef{Type: "order", ID: sourceID},
		Status:          domain.PlacementActive,
		EntryAmount:     decimal.NewFromInt(150),
		CreatedAt:       createdAt,
	}
}

func TestPlacementCreateOncePerKey(t *testing.T) {
	repo := repository.NewDefaultPlacementRepository(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	first := newAccount("U", nil, "1", now)
	inserted, err := repo.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Create(ctx, newAccount("U", nil, "1", now))
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.GetByKey(ctx, "U", domain.PoolThreeLevel150, domain.SourceRef{Type: "order", ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.True(t, got.EntryAmount.Equal(decimal.NewFromInt(150)))

	_, err = repo.GetByKey(ctx, "U", domain.PoolFiveLevel150, domain.SourceRef{Type: "order", ID: "1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlacementTreeQueries(t *testing.T) {
	repo := repository.NewDefaultPlacementRepository(testutil.NewDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	root := newAccount("R", nil, "1", now)
	older := newAccount("A", &root.ID, "2", now.Add(time.Second))
	newer := newAccount("B", &root.ID, "3", now.Add(2*time.Second))
	second := newAccount("R", nil, "4", now.Add(3*time.Second))
	for _, a := range []*domain.PlacementAccount{root, newer, older, second} {
		_, err := repo.Create(ctx, a)
		require.NoError(t, err)
	}

	children, err := repo.ListChildren(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, older.ID, children[0].ID)
	assert.Equal(t, newer.ID, children[1].ID)

	count, err := repo.CountChildren(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	anchor, err := repo.FindAnchor(ctx, "R", domain.PoolThreeLevel150)
	require.NoError(t, err)
	assert.Equal(t, root.ID, anchor.ID)

	require.NoError(t, repo.UpdateStatus(ctx, root.ID, domain.PlacementClosed))
	anchor, err = repo.FindAnchor(ctx, "R", domain.PoolThreeLevel150)
	require.NoError(t, err)
	assert.Equal(t, second.ID, anchor.ID)

	_, err = repo.FindAnchor(ctx, "nobody", domain.PoolThreeLevel150)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New().String(), domain.PlacementClosed), domain.ErrNotFound)
}
