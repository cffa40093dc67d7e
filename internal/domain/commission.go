package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type LevelMode string

const (
	LevelFixed   LevelMode = "FIXED"
	LevelPercent LevelMode = "PERCENT"
)

// LevelTable holds per-level values, index 0 being level 1.
type LevelTable struct {
	Mode   LevelMode
	Values []decimal.Decimal
}

type PoolConfig struct {
	Type PoolType
	// Depth is the number of ancestor levels paid. Zero means the length of the level table.
	Depth  int
	FanOut int
	// MaxSpilloverScan bounds how many nodes the breadth-first search visits.
	MaxSpilloverScan int
}

type PackageConfig struct {
	Code       string
	Key        string
	BaseAmount decimal.Decimal
	Pools      []PoolType
}

// CommissionConfig is a read-only snapshot taken once per distribution run.
type CommissionConfig struct {
	Pools       map[PoolType]PoolConfig
	LevelTables map[PoolType]map[string]LevelTable
	Packages    map[string]PackageConfig

	DirectBonus      decimal.Decimal
	SelfBonus        decimal.Decimal
	DirectBonusByKey map[string]decimal.Decimal
	SelfBonusByKey   map[string]decimal.Decimal
	// WithholdSelfBonus keeps self bonuses out of the withdrawable balance.
	WithholdSelfBonus bool

	// AllowIntermediaryInMatrix is nil when unset, which counts as true.
	AllowIntermediaryInMatrix *bool
}

func (c *CommissionConfig) Package(code string) (PackageConfig, error) {
	pkg, ok := c.Packages[code]
	if !ok {
		return PackageConfig{}, fmt.Errorf("%w: %s", ErrUnknownPackage, code)
	}
	return pkg, nil
}

func (c *CommissionConfig) Pool(poolType PoolType) (PoolConfig, error) {
	pool, ok := c.Pools[poolType]
	if !ok {
		return PoolConfig{}, fmt.Errorf("%w: %s", ErrUnknownPool, poolType)
	}
	return pool, nil
}

func (c *CommissionConfig) LevelTable(poolType PoolType, key string) (LevelTable, bool) {
	tables, ok := c.LevelTables[poolType]
	if !ok {
		return LevelTable{}, false
	}
	table, ok := tables[key]
	return table, ok
}

// DirectBonusFor returns the per-key override, falling back to the global default.
func (c *CommissionConfig) DirectBonusFor(key string) decimal.Decimal {
	if v, ok := c.DirectBonusByKey[key]; ok {
		return v
	}
	return c.DirectBonus
}

func (c *CommissionConfig) SelfBonusFor(key string) decimal.Decimal {
	if v, ok := c.SelfBonusByKey[key]; ok {
		return v
	}
	return c.SelfBonus
}

func (c *CommissionConfig) IntermediaryAllowed() bool {
	return c.AllowIntermediaryInMatrix == nil || *c.AllowIntermediaryInMatrix
}

// Validate checks the snapshot for values the engine cannot work with.
func (c *CommissionConfig) Validate() error {
	for poolType, pool := range c.Pools {
		if pool.FanOut < 1 {
			return fmt.Errorf("%w: pool %s fan_out must be positive", ErrInvalidConfig, poolType)
		}
		if pool.Depth < 0 {
			return fmt.Errorf("%w: pool %s depth is negative", ErrInvalidConfig, poolType)
		}
	}
	for poolType, tables := range c.LevelTables {
		for key, table := range tables {
			if table.Mode != LevelFixed && table.Mode != LevelPercent {
				return fmt.Errorf("%w: pool %s key %s has mode %q", ErrInvalidConfig, poolType, key, table.Mode)
			}
		}
	}
	for code, pkg := range c.Packages {
		for _, poolType := range pkg.Pools {
			if _, ok := c.Pools[poolType]; !ok {
				return fmt.Errorf("%w: package %s opens unknown pool %s", ErrInvalidConfig, code, poolType)
			}
			if _, ok := c.LevelTable(poolType, pkg.Key); !ok {
				return fmt.Errorf("%w: package %s has no level table in pool %s for key %q", ErrInvalidConfig, code, poolType, pkg.Key)
			}
		}
	}
	return nil
}

type CommissionConfigProvider interface {
	GetCommissionConfig(ctx context.Context) (*CommissionConfig, error)
}

// PayoutInstruction is one computed level payout, before it touches the ledger.
type PayoutInstruction struct {
	RecipientID string
	Level       int
	Amount      decimal.Decimal
	Mode        LevelMode
	Rate        decimal.Decimal
}

type PayoutResult struct {
	PayoutInstruction
	EntryID  string
	PoolType PoolType
}

// MatrixProgress is the per (user, pool) rollup of matrix earnings. It never decreases.
type MatrixProgress struct {
	UserID         string
	PoolType       PoolType
	TotalEarned    decimal.Decimal
	LevelReached   int
	PerLevelCount  map[int]int64
	PerLevelEarned map[int]decimal.Decimal
}

// Apply adds one payout at the given 1-based level.
func (p *MatrixProgress) Apply(level int, amount decimal.Decimal) {
	if p.PerLevelCount == nil {
		p.PerLevelCount = make(map[int]int64)
	}
	if p.PerLevelEarned == nil {
		p.PerLevelEarned = make(map[int]decimal.Decimal)
	}
	p.TotalEarned = p.TotalEarned.Add(amount)
	if level > p.LevelReached {
		p.LevelReached = level
	}
	p.PerLevelCount[level]++
	p.PerLevelEarned[level] = p.PerLevelEarned[level].Add(amount)
}

type MatrixProgressRepository interface {
	// Lock creates the row if missing and locks it until the transaction ends.
	Lock(ctx context.Context, userID string, poolType PoolType) (*MatrixProgress, error)
	Get(ctx context.Context, userID string, poolType PoolType) (*MatrixProgress, error)
	Save(ctx context.Context, progress *MatrixProgress) error
}
