package testutil

import (
	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/shopspring/decimal"
)

func Amounts(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

// CommissionConfig returns a small two-pool table:
// PRIME_150 opens FIVE_LEVEL_150 (fixed 50/10/5/5/5, fan-out 2) and
// THREE_LEVEL_150 (10%/5%/2.5%, fan-out 3). Direct bonus 25, self bonus 7.50.
func CommissionConfig() *domain.CommissionConfig {
	return &domain.CommissionConfig{
		Pools: map[domain.PoolType]domain.PoolConfig{
			domain.PoolFiveLevel150:  {Type: domain.PoolFiveLevel150, Depth: 5, FanOut: 2, MaxSpilloverScan: 100},
			domain.PoolThreeLevel150: {Type: domain.PoolThreeLevel150, Depth: 3, FanOut: 3, MaxSpilloverScan: 100},
			domain.PoolThreeLevel50:  {Type: domain.PoolThreeLevel50, Depth: 3, FanOut: 3, MaxSpilloverScan: 100},
		},
		LevelTables: map[domain.PoolType]map[string]domain.LevelTable{
			domain.PoolFiveLevel150: {
				"150": {Mode: domain.LevelFixed, Values: Amounts("50", "10", "5", "5", "5")},
			},
			domain.PoolThreeLevel150: {
				"150": {Mode: domain.LevelPercent, Values: Amounts("10", "5", "2.5")},
			},
			domain.PoolThreeLevel50: {
				"50": {Mode: domain.LevelPercent, Values: Amounts("10", "5", "5")},
			},
		},
		Packages: map[string]domain.PackageConfig{
			"PRIME_150": {
				Code:       "PRIME_150",
				Key:        "150",
				BaseAmount: decimal.RequireFromString("150"),
				Pools:      []domain.PoolType{domain.PoolFiveLevel150, domain.PoolThreeLevel150},
			},
			"STARTER_50": {
				Code:       "STARTER_50",
				Key:        "50",
				BaseAmount: decimal.RequireFromString("50"),
				Pools:      []domain.PoolType{domain.PoolThreeLevel50},
			},
		},
		DirectBonus:       decimal.RequireFromString("10"),
		DirectBonusByKey:  map[string]decimal.Decimal{"150": decimal.RequireFromString("25")},
		SelfBonusByKey:    map[string]decimal.Decimal{"150": decimal.RequireFromString("7.50")},
		WithholdSelfBonus: true,
	}
}
