package commissioncfg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type levelTableFile struct {
	Mode   string   `yaml:"mode"`
	Values []string `yaml:"values"`
}

type poolFile struct {
	Depth            int `yaml:"depth"`
	FanOut           int `yaml:"fan_out"`
	MaxSpilloverScan int `yaml:"max_spillover_scan"`
}

type packageFile struct {
	Key        string   `yaml:"key"`
	BaseAmount string   `yaml:"base_amount"`
	Pools      []string `yaml:"pools"`
}

type commissionFile struct {
	Pools                     map[string]poolFile                  `yaml:"pools"`
	LevelTables               map[string]map[string]levelTableFile `yaml:"level_tables"`
	Packages                  map[string]packageFile               `yaml:"packages"`
	DirectBonus               string                               `yaml:"direct_bonus"`
	SelfBonus                 string                               `yaml:"self_bonus"`
	DirectBonusByKey          map[string]string                    `yaml:"direct_bonus_by_key"`
	SelfBonusByKey            map[string]string                    `yaml:"self_bonus_by_key"`
	WithholdSelfBonus         bool                                 `yaml:"withhold_self_bonus"`
	AllowIntermediaryInMatrix *bool                                `yaml:"allow_intermediary_in_matrix"`
}

// Parse decodes a YAML commission table and validates it.
func Parse(data []byte) (*domain.CommissionConfig, error) {
	var raw commissionFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	cfg := &domain.CommissionConfig{
		Pools:                     make(map[domain.PoolType]domain.PoolConfig, len(raw.Pools)),
		LevelTables:               make(map[domain.PoolType]map[string]domain.LevelTable, len(raw.LevelTables)),
		Packages:                  make(map[string]domain.PackageConfig, len(raw.Packages)),
		WithholdSelfBonus:         raw.WithholdSelfBonus,
		AllowIntermediaryInMatrix: raw.AllowIntermediaryInMatrix,
	}

	for name, p := range raw.Pools {
		poolType := domain.PoolType(name)
		cfg.Pools[poolType] = domain.PoolConfig{
			Type:             poolType,
			Depth:            p.Depth,
			FanOut:           p.FanOut,
			MaxSpilloverScan: p.MaxSpilloverScan,
		}
	}

	for name, tables := range raw.LevelTables {
		byKey := make(map[string]domain.LevelTable, len(tables))
		for key, t := range tables {
			values, err := parseAmounts(t.Values)
			if err != nil {
				return nil, fmt.Errorf("%w: level table %s/%s: %v", domain.ErrInvalidConfig, name, key, err)
			}
			byKey[key] = domain.LevelTable{Mode: domain.LevelMode(t.Mode), Values: values}
		}
		cfg.LevelTables[domain.PoolType(name)] = byKey
	}

	for code, p := range raw.Packages {
		base, err := parseAmount(p.BaseAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: package %s base_amount: %v", domain.ErrInvalidConfig, code, err)
		}
		pools := make([]domain.PoolType, len(p.Pools))
		for i, name := range p.Pools {
			pools[i] = domain.PoolType(name)
		}
		cfg.Packages[code] = domain.PackageConfig{Code: code, Key: p.Key, BaseAmount: base, Pools: pools}
	}

	var err error
	if cfg.DirectBonus, err = parseAmount(raw.DirectBonus); err != nil {
		return nil, fmt.Errorf("%w: direct_bonus: %v", domain.ErrInvalidConfig, err)
	}
	if cfg.SelfBonus, err = parseAmount(raw.SelfBonus); err != nil {
		return nil, fmt.Errorf("%w: self_bonus: %v", domain.ErrInvalidConfig, err)
	}
	if cfg.DirectBonusByKey, err = parseAmountMap(raw.DirectBonusByKey); err != nil {
		return nil, fmt.Errorf("%w: direct_bonus_by_key: %v", domain.ErrInvalidConfig, err)
	}
	if cfg.SelfBonusByKey, err = parseAmountMap(raw.SelfBonusByKey); err != nil {
		return nil, fmt.Errorf("%w: self_bonus_by_key: %v", domain.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", s)
	}
	return d, nil
}

func parseAmounts(values []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := parseAmount(v)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", i+1, err)
		}
		out[i] = d
	}
	return out, nil
}

func parseAmountMap(values map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(values))
	for k, v := range values {
		d, err := parseAmount(v)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		out[k] = d
	}
	return out, nil
}

// FileProvider serves the commission table from a YAML file and reloads it
// when the file's modification time changes. A reload that fails keeps the
// last good snapshot. Snapshots are shared and must not be mutated.
type FileProvider struct {
	Path string

	mu      sync.Mutex
	current *domain.CommissionConfig
	modTime time.Time
}

func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{Path: path}
	if _, err := p.GetCommissionConfig(context.Background()); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) GetCommissionConfig(_ context.Context) (*domain.CommissionConfig, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := os.Stat(p.Path)
	if err != nil {
		if p.current != nil {
			return p.current, nil
		}
		return nil, fmt.Errorf("stat commission config: %w", err)
	}
	if p.current != nil && info.ModTime().Equal(p.modTime) {
		return p.current, nil
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		if p.current != nil {
			return p.current, nil
		}
		return nil, fmt.Errorf("read commission config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		if p.current != nil {
			return p.current, nil
		}
		return nil, err
	}
	p.current = cfg
	p.modTime = info.ModTime()
	return cfg, nil
}

// StaticProvider always returns the same snapshot.
type StaticProvider struct {
	Config *domain.CommissionConfig
}

func (p StaticProvider) GetCommissionConfig(_ context.Context) (*domain.CommissionConfig, error) {
	if p.Config == nil {
		return nil, fmt.Errorf("%w: no commission config", domain.ErrInvalidConfig)
	}
	return p.Config, nil
}
