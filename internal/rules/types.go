// types.go
package rules

import (
	"time"

	"github.com/xtding233/honing-forecast/internal/honing"
	"github.com/xtding233/honing-forecast/internal/market"
	"github.com/xtding233/honing-forecast/internal/solver"
)

// Raw config loaded from YAML. Resource amounts are keyed by resource name
// (red, blue, leaps, shards, oreha, gold, silver, red_juice, blue_juice,
// special_leaps).
type RawConfig struct {
	Version  string             `yaml:"version"`
	Rates    map[string]float64 `yaml:"rates,omitempty"` // gold per unit; overrides market prices
	Market   []BundleConfig     `yaml:"market,omitempty"`
	Normal   *NormalConfig      `yaml:"normal,omitempty"`
	Advanced *AdvancedConfig    `yaml:"advanced,omitempty"`
	Solver   *SolverConfig      `yaml:"solver,omitempty"`
	Notes    string             `yaml:"notes,omitempty"`
}

type Amounts map[string]int64

type NormalConfig struct {
	IncPerFail  *float64      `yaml:"inc_per_fail"`
	MaxFactor   *float64      `yaml:"max_factor"`
	ArtisanRate *float64      `yaml:"artisan_rate"`
	WeaponRow   *int          `yaml:"weapon_row"`
	Levels      []LevelConfig `yaml:"levels,omitempty"`
}

type LevelConfig struct {
	Prob       float64 `yaml:"prob"`
	Armor      Amounts `yaml:"armor"`
	Weapon     Amounts `yaml:"weapon"`
	ArmorSkip  Amounts `yaml:"armor_skip,omitempty"`
	WeaponSkip Amounts `yaml:"weapon_skip,omitempty"`
}

type AdvancedConfig struct {
	WeaponRow  *int                      `yaml:"weapon_row"`
	Tiers      []TierConfig              `yaml:"tiers,omitempty"`
	Strategies map[string]StrategyConfig `yaml:"strategies,omitempty"`
}

type TierConfig struct {
	Goal        int     `yaml:"goal"`
	Armor       Amounts `yaml:"armor"`
	Weapon      Amounts `yaml:"weapon"`
	JuicePerTap int64   `yaml:"juice_per_tap"`
}

type StrategyConfig struct {
	Juice bool         `yaml:"juice"`
	Gains []GainConfig `yaml:"gains"`
}

type GainConfig struct {
	XP   int     `yaml:"xp"`
	Prob float64 `yaml:"prob"`
}

type BundleConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name,omitempty"`
	Resource string `yaml:"resource"`
	Amount   int64  `yaml:"amount"`
	Price    int64  `yaml:"price"`
}

// SolverConfig tunes the annealer and the dual driver. Nil fields keep the
// built-in defaults.
type SolverConfig struct {
	MaxIter         *int     `yaml:"max_iter"`
	MinIter         *int     `yaml:"min_iter"`
	ItersPerTemp    *int     `yaml:"iters_per_temp"`
	RestartPeriod   *int     `yaml:"restart_period"`
	RestartMin      *int     `yaml:"restart_min"`
	CrossoverProb   *float64 `yaml:"crossover_prob"`
	MultiProb       *float64 `yaml:"multi_prob"`
	MultiMax        *int     `yaml:"multi_max"`
	Neighbour       string   `yaml:"neighbour,omitempty"` // mixed | single | multi | crossover
	Temperature     *float64 `yaml:"temperature"`
	InitialScale    *float64 `yaml:"initial_scale"`
	ScalerBatch     *int     `yaml:"scaler_batch"`
	LearningRate    *float64 `yaml:"learning_rate"`
	TargetStart     *float64 `yaml:"target_start"`
	TargetEnd       *float64 `yaml:"target_end"`
	KSTolerance     *float64 `yaml:"ks_tolerance"`
	BruteThreshold  *int     `yaml:"brute_threshold"`
	ChanceTolerance *float64 `yaml:"chance_tolerance"`
	MaxOuterIter    *int     `yaml:"max_outer_iter"`
	BisectIter      *int     `yaml:"bisect_iter"`
	PolishIter      *int     `yaml:"polish_iter"`
	Penalty         *float64 `yaml:"penalty"`
	Seed            *uint64  `yaml:"seed"`
	Timeout         string   `yaml:"timeout,omitempty"` // Go duration, e.g. "30s"
	HistogramTrials *int     `yaml:"histogram_trials"`
}

// Params are the normalized rules used by the solver.
type Params struct {
	Tables          honing.Tables
	Catalog         market.Catalog
	Options         solver.Options
	Timeout         time.Duration // zero means none
	HistogramTrials int
	Version         string // effective config version for tracing
}
