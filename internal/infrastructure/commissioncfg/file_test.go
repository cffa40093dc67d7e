package commissioncfg_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/commissioncfg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
direct_bonus: "10"
pools:
  THREE_LEVEL_50:
    depth: 3
    fan_out: 3
level_tables:
  THREE_LEVEL_50:
    "50":
      mode: PERCENT
      values: ["10", "5", "5"]
packages:
  STARTER_50:
    key: "50"
    base_amount: "50"
    pools: [THREE_LEVEL_50]
`

func TestParseShippedConfig(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "..", "config", "commission.yaml"))
	require.NoError(t, err)

	cfg, err := commissioncfg.Parse(data)
	require.NoError(t, err)

	pkg, err := cfg.Package("PRIME_150")
	require.NoError(t, err)
	assert.Equal(t, []domain.PoolType{domain.PoolFiveLevel150, domain.PoolThreeLevel150}, pkg.Pools)
	assert.True(t, pkg.BaseAmount.Equal(decimal.NewFromInt(150)))

	table, ok := cfg.LevelTable(domain.PoolThreeLevel150, "150")
	require.True(t, ok)
	assert.Equal(t, domain.LevelPercent, table.Mode)
	assert.Len(t, table.Values, 3)

	assert.True(t, cfg.SelfBonusFor("150").Equal(decimal.RequireFromString("7.5")))
	assert.True(t, cfg.WithholdSelfBonus)
	assert.True(t, cfg.IntermediaryAllowed())
}

func TestParseRejectsBadTables(t *testing.T) {
	cases := map[string]string{
		"unknown field":   "fan_outs: 3\n",
		"bad amount":      "direct_bonus: ten\n",
		"negative amount": "self_bonus: \"-1\"\n",
		"zero fan-out":    "pools:\n  THREE_LEVEL_50:\n    fan_out: 0\n",
		"bad mode":        "level_tables:\n  THREE_LEVEL_50:\n    \"50\":\n      mode: HALF\n",
		"unknown pool":    "packages:\n  STARTER_50:\n    pools: [NINE_LEVEL]\n",
		"no level table":  "pools:\n  THREE_LEVEL_50:\n    fan_out: 3\npackages:\n  STARTER_50:\n    key: \"50\"\n    pools: [THREE_LEVEL_50]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := commissioncfg.Parse([]byte(doc))
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestFileProviderReloadsAndKeepsLastGood(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commission.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	p, err := commissioncfg.NewFileProvider(path)
	require.NoError(t, err)
	first, err := p.GetCommissionConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, first.DirectBonus.Equal(decimal.NewFromInt(10)))

	touch := func(content string, at time.Time) {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		require.NoError(t, os.Chtimes(path, at, at))
	}

	touch(minimal+"self_bonus: \"2\"\n", time.Now().Add(time.Minute))
	second, err := p.GetCommissionConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, second.SelfBonus.Equal(decimal.NewFromInt(2)))

	touch("pools: [", time.Now().Add(2*time.Minute))
	kept, err := p.GetCommissionConfig(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, kept)

	require.NoError(t, os.Remove(path))
	kept, err = p.GetCommissionConfig(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, kept)
}

func TestFileProviderNeedsAFile(t *testing.T) {
	_, err := commissioncfg.NewFileProvider(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = commissioncfg.StaticProvider{}.GetCommissionConfig(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
