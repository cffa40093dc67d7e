package usecase_test

import (
	"context"
	"testing"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/repository"
	"github.com/LavaJover/shvark-matrix-service/internal/testutil"
	"github.com/LavaJover/shvark-matrix-service/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fanOutTwo = domain.PoolConfig{Type: domain.PoolFiveLevel150, Depth: 5, FanOut: 2, MaxSpilloverScan: 100}

type placementFixture struct {
	uc      *usecase.DefaultPlacementUsecase
	metrics *metrics.CommissionMetrics
}

func newPlacement(t *testing.T, users ...testutil.User) placementFixture {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.SeedUsers(t, db, users...)
	m := metrics.NewCommissionMetrics(prometheus.NewRegistry())
	return placementFixture{
		uc:      usecase.NewDefaultPlacementUsecase(repository.NewDefaultStore(db), m),
		metrics: m,
	}
}

func (f placementFixture) open(t *testing.T, owner, sourceID string, pool domain.PoolConfig) *domain.PlacementAccount {
	t.Helper()
	account, created, err := f.uc.OpenAccount(context.Background(), domain.OpenAccountInput{
		OwnerUserID: owner,
		PoolType:    pool.Type,
		EntryAmount: amount("150"),
		Source:      domain.SourceRef{Type: "order", ID: sourceID},
	}, pool)
	require.NoError(t, err)
	require.True(t, created)
	return account
}

func parentOf(account *domain.PlacementAccount) string {
	if account.ParentAccountID == nil {
		return ""
	}
	return *account.ParentAccountID
}

func TestOpenAccountIsIdempotent(t *testing.T) {
	f := newPlacement(t, testutil.User{ID: "U"})
	ctx := context.Background()
	in := domain.OpenAccountInput{
		OwnerUserID: "U",
		PoolType:    fanOutTwo.Type,
		EntryAmount: amount("150"),
		Source:      domain.SourceRef{Type: "order", ID: "1"},
	}

	first, created, err := f.uc.OpenAccount(ctx, in, fanOutTwo)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := f.uc.OpenAccount(ctx, in, fanOutTwo)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.PlacementsTotal.WithLabelValues(string(fanOutTwo.Type), "root")))
}

func TestOpenAccountRejectsBadInput(t *testing.T) {
	f := newPlacement(t, testutil.User{ID: "U"})
	ctx := context.Background()
	in := domain.OpenAccountInput{OwnerUserID: "U", PoolType: fanOutTwo.Type, EntryAmount: amount("-1")}

	_, _, err := f.uc.OpenAccount(ctx, in, fanOutTwo)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	in.EntryAmount = amount("1")
	_, _, err = f.uc.OpenAccount(ctx, in, domain.PoolConfig{Type: fanOutTwo.Type})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSpilloverFillsBreadthFirst(t *testing.T) {
	f := newPlacement(t,
		testutil.User{ID: "R"},
		testutil.User{ID: "A", Sponsor: "R"},
		testutil.User{ID: "B", Sponsor: "R"},
		testutil.User{ID: "C", Sponsor: "R"},
		testutil.User{ID: "D", Sponsor: "R"},
		testutil.User{ID: "E", Sponsor: "R"},
	)

	r := f.open(t, "R", "r", fanOutTwo)
	a := f.open(t, "A", "a", fanOutTwo)
	b := f.open(t, "B", "b", fanOutTwo)
	c := f.open(t, "C", "c", fanOutTwo)
	d := f.open(t, "D", "d", fanOutTwo)
	e := f.open(t, "E", "e", fanOutTwo)

	assert.Empty(t, parentOf(r))
	assert.Equal(t, r.ID, parentOf(a))
	assert.Equal(t, r.ID, parentOf(b))
	assert.Equal(t, a.ID, parentOf(c))
	assert.Equal(t, a.ID, parentOf(d))
	assert.Equal(t, b.ID, parentOf(e))

	poolType := string(fanOutTwo.Type)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.PlacementsTotal.WithLabelValues(poolType, "root")))
	assert.Equal(t, 2.0, promtest.ToFloat64(f.metrics.PlacementsTotal.WithLabelValues(poolType, "anchor")))
	assert.Equal(t, 3.0, promtest.ToFloat64(f.metrics.PlacementsTotal.WithLabelValues(poolType, "spillover")))

	chain, err := f.uc.AncestorChain(context.Background(), e, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "R"}, chain)

	chain, err = f.uc.AncestorChain(context.Background(), c, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, chain)
}

func TestAnchorSkipsSponsorsOutsideThePool(t *testing.T) {
	f := newPlacement(t,
		testutil.User{ID: "G"},
		testutil.User{ID: "S", Sponsor: "G"},
		testutil.User{ID: "U", Sponsor: "S"},
	)

	g := f.open(t, "G", "g", fanOutTwo)
	u := f.open(t, "U", "u", fanOutTwo)
	assert.Equal(t, g.ID, parentOf(u))
}

func TestClosedNodeIsNotAParent(t *testing.T) {
	f := newPlacement(t,
		testutil.User{ID: "R"},
		testutil.User{ID: "A", Sponsor: "R"},
		testutil.User{ID: "B", Sponsor: "R"},
		testutil.User{ID: "C", Sponsor: "R"},
	)

	f.open(t, "R", "r", fanOutTwo)
	a := f.open(t, "A", "a", fanOutTwo)
	b := f.open(t, "B", "b", fanOutTwo)
	require.NoError(t, f.uc.CloseAccount(context.Background(), a.ID))

	c := f.open(t, "C", "c", fanOutTwo)
	assert.Equal(t, b.ID, parentOf(c))
}

func TestSpilloverScanLimit(t *testing.T) {
	pool := domain.PoolConfig{Type: domain.PoolThreeLevel50, FanOut: 1, MaxSpilloverScan: 1}
	f := newPlacement(t,
		testutil.User{ID: "R"},
		testutil.User{ID: "A", Sponsor: "R"},
		testutil.User{ID: "B", Sponsor: "R"},
	)
	f.open(t, "R", "r", pool)
	f.open(t, "A", "a", pool)

	_, _, err := f.uc.OpenAccount(context.Background(), domain.OpenAccountInput{
		OwnerUserID: "B",
		PoolType:    pool.Type,
		EntryAmount: amount("50"),
		Source:      domain.SourceRef{Type: "order", ID: "b"},
	}, pool)
	assert.ErrorIs(t, err, domain.ErrPlacementCapacityExceeded)
}

func TestRootFallsBackToSponsorChain(t *testing.T) {
	f := newPlacement(t,
		testutil.User{ID: "Z"},
		testutil.User{ID: "Y", Sponsor: "Z"},
		testutil.User{ID: "X", Sponsor: "Y"},
	)

	x := f.open(t, "X", "x", fanOutTwo)
	assert.Empty(t, parentOf(x))

	chain, err := f.uc.AncestorChain(context.Background(), x, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y", "Z"}, chain)

	chain, err = f.uc.SponsorChain(context.Background(), "X", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y"}, chain)
}

func TestSponsorCycleTerminates(t *testing.T) {
	f := newPlacement(t,
		testutil.User{ID: "P", Sponsor: "Q"},
		testutil.User{ID: "Q", Sponsor: "P"},
	)

	p := f.open(t, "P", "p", fanOutTwo)
	assert.Empty(t, parentOf(p))

	chain, err := f.uc.SponsorChain(context.Background(), "P", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q"}, chain)

	q := f.open(t, "Q", "q", fanOutTwo)
	assert.Equal(t, p.ID, parentOf(q))

	chain, err = f.uc.AncestorChain(context.Background(), q, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"P"}, chain)
}

func TestSponsorChainStopsAtUnknownSponsor(t *testing.T) {
	f := newPlacement(t, testutil.User{ID: "U", Sponsor: "gone"})

	chain, err := f.uc.SponsorChain(context.Background(), "U", 5)
	require.NoError(t, err)
	assert.Empty(t, chain)

	_, err = f.uc.SponsorChain(context.Background(), "nobody", 5)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
