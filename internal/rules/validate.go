package rules

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/xtding233/honing-forecast/internal/anneal"
	"github.com/xtding233/honing-forecast/internal/honing"
)

// ErrInvalid marks a config that fails validation.
var ErrInvalid = errors.New("config validation failed")

// ValidateRaw checks semantic constraints of a merged RawConfig.
func ValidateRaw(cfg RawConfig) error {
	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}
	amounts := func(where string, a Amounts) {
		for k, v := range a {
			if _, ok := honing.ParseResource(k); !ok {
				add("%s: unknown resource %q", where, k)
			}
			if v < 0 {
				add("%s.%s must be >= 0", where, k)
			}
		}
	}

	for k, v := range cfg.Rates {
		if _, ok := honing.ParseResource(k); !ok {
			add("rates: unknown resource %q", k)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			add("rates.%s must be a finite value >= 0", k)
		}
	}
	for i, b := range cfg.Market {
		if b.ID == "" {
			add("market[%d].id is required", i)
		}
		if r, ok := honing.ParseResource(b.Resource); !ok {
			add("market[%d]: unknown resource %q", i, b.Resource)
		} else if r == honing.Gold {
			add("market[%d]: gold cannot be bought", i)
		}
		if b.Amount <= 0 {
			add("market[%d].amount must be >= 1", i)
		}
		if b.Price < 0 {
			add("market[%d].price must be >= 0", i)
		}
	}

	// normal
	if n := cfg.Normal; n == nil || len(n.Levels) == 0 {
		add("normal.levels is required")
	} else {
		if n.IncPerFail == nil || *n.IncPerFail < 0 {
			add("normal.inc_per_fail must be >= 0")
		}
		if n.MaxFactor == nil || *n.MaxFactor < 1 {
			add("normal.max_factor must be >= 1")
		}
		if n.ArtisanRate == nil || *n.ArtisanRate <= 0 || *n.ArtisanRate > 1 {
			add("normal.artisan_rate must be in (0,1]")
		}
		if n.WeaponRow == nil || *n.WeaponRow < 0 || *n.WeaponRow >= honing.MaxPieces {
			add("normal.weapon_row must be in [0,%d)", honing.MaxPieces)
		}
		for i, l := range n.Levels {
			if !(l.Prob > 0 && l.Prob <= 1) {
				add("normal.levels[%d].prob must be in (0,1]", i)
			}
			amounts(fmt.Sprintf("normal.levels[%d].armor", i), l.Armor)
			amounts(fmt.Sprintf("normal.levels[%d].weapon", i), l.Weapon)
			amounts(fmt.Sprintf("normal.levels[%d].armor_skip", i), l.ArmorSkip)
			amounts(fmt.Sprintf("normal.levels[%d].weapon_skip", i), l.WeaponSkip)
		}
	}

	// advanced
	if a := cfg.Advanced; a != nil {
		if a.WeaponRow == nil || *a.WeaponRow < 0 || *a.WeaponRow >= honing.MaxPieces {
			add("advanced.weapon_row must be in [0,%d)", honing.MaxPieces)
		}
		for i, t := range a.Tiers {
			if t.Goal <= 0 {
				add("advanced.tiers[%d].goal must be >= 1", i)
			}
			if t.JuicePerTap < 0 {
				add("advanced.tiers[%d].juice_per_tap must be >= 0", i)
			}
			amounts(fmt.Sprintf("advanced.tiers[%d].armor", i), t.Armor)
			amounts(fmt.Sprintf("advanced.tiers[%d].weapon", i), t.Weapon)
		}
		for name, s := range a.Strategies {
			var total float64
			for j, g := range s.Gains {
				if g.XP <= 0 {
					add("advanced.strategies[%q].gains[%d].xp must be >= 1", name, j)
				}
				if !(g.Prob >= 0 && g.Prob <= 1) {
					add("advanced.strategies[%q].gains[%d].prob must be in [0,1]", name, j)
				}
				total += g.Prob
			}
			if math.Abs(total-1) > 1e-9 {
				add("advanced.strategies[%q].gains must sum to 1, got %v", name, total)
			}
		}
	}

	// solver
	if s := cfg.Solver; s != nil {
		if s.Neighbour != "" {
			if _, ok := anneal.ParseNeighbour(s.Neighbour); !ok {
				add("solver.neighbour must be one of: mixed, single, multi, crossover")
			}
		}
		for name, p := range map[string]*float64{
			"crossover_prob": s.CrossoverProb, "multi_prob": s.MultiProb,
			"target_start": s.TargetStart, "target_end": s.TargetEnd,
		} {
			if p != nil && !(*p >= 0 && *p <= 1) {
				add("solver.%s must be in [0,1]", name)
			}
		}
		if s.CrossoverProb != nil && s.MultiProb != nil && *s.CrossoverProb+*s.MultiProb > 1 {
			add("solver.crossover_prob + multi_prob must be <= 1")
		}
		for name, v := range map[string]*int{
			"max_iter": s.MaxIter, "min_iter": s.MinIter, "iters_per_temp": s.ItersPerTemp,
			"restart_period": s.RestartPeriod, "restart_min": s.RestartMin, "multi_max": s.MultiMax,
			"scaler_batch": s.ScalerBatch, "brute_threshold": s.BruteThreshold,
			"max_outer_iter": s.MaxOuterIter, "bisect_iter": s.BisectIter, "polish_iter": s.PolishIter,
			"histogram_trials": s.HistogramTrials,
		} {
			if v != nil && *v < 0 {
				add("solver.%s must be >= 0", name)
			}
		}
		if s.Timeout != "" {
			if d, err := time.ParseDuration(s.Timeout); err != nil || d < 0 {
				add("solver.timeout must be a non-negative duration")
			}
		}
	}

	if len(errs) > 0 {
		// map iteration order varies; keep the message stable
		sort.Strings(errs)
		return errors.Wrap(ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}
