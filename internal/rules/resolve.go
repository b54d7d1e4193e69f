// resolve.go
package rules

import (
	"time"

	"github.com/pkg/errors"

	"github.com/xtding233/honing-forecast/internal/anneal"
	"github.com/xtding233/honing-forecast/internal/honing"
	"github.com/xtding233/honing-forecast/internal/market"
	"github.com/xtding233/honing-forecast/internal/solver"
)

// Overrides carries per-request settings that win over every file layer.
type Overrides struct {
	Seed    *uint64
	MaxIter *int
	Timeout *time.Duration
}

type Resolver interface {
	// Returns merged RawConfig and normalized Params
	Resolve(profile string, o Overrides) (RawConfig, Params, error)
}

// Resolve merges the layers for profile, validates them and applies o.
func (l *Loader) Resolve(profile string, o Overrides) (RawConfig, Params, error) {
	raw, err := l.LoadMerged(profile)
	if err != nil {
		return RawConfig{}, Params{}, err
	}
	p, err := Normalize(raw, o)
	return raw, p, err
}

// Normalize validates raw and converts it into solver parameters.
func Normalize(raw RawConfig, o Overrides) (Params, error) {
	if err := ValidateRaw(raw); err != nil {
		return Params{}, err
	}
	p := Params{Version: raw.Version}

	for _, b := range raw.Market {
		r, _ := honing.ParseResource(b.Resource)
		name := b.Name
		if name == "" {
			name = b.ID
		}
		p.Catalog.Bundles = append(p.Catalog.Bundles, market.Bundle{
			ID: b.ID, Name: name, Resource: r, Amount: b.Amount, Price: b.Price,
		})
	}
	rates := p.Catalog.Rates()
	for k, v := range raw.Rates {
		r, _ := honing.ParseResource(k)
		rates[r] = v
	}
	p.Tables.Rates = rates

	n := raw.Normal
	p.Tables.Normal = honing.NormalTable{
		Rules: honing.NormalRules{
			IncPerFail:  *n.IncPerFail,
			MaxFactor:   *n.MaxFactor,
			ArtisanRate: *n.ArtisanRate,
		},
		WeaponRow: *n.WeaponRow,
	}
	for _, lv := range n.Levels {
		p.Tables.Normal.Levels = append(p.Tables.Normal.Levels, honing.NormalLevel{
			BaseProb:   lv.Prob,
			Armor:      costs(lv.Armor),
			Weapon:     costs(lv.Weapon),
			ArmorSkip:  costs(lv.ArmorSkip),
			WeaponSkip: costs(lv.WeaponSkip),
		})
	}

	if a := raw.Advanced; a != nil {
		p.Tables.Advanced.WeaponRow = *a.WeaponRow
		for _, t := range a.Tiers {
			p.Tables.Advanced.Tiers = append(p.Tables.Advanced.Tiers, honing.AdvancedTier{
				Goal: t.Goal, Armor: costs(t.Armor), Weapon: costs(t.Weapon), JuicePerTap: t.JuicePerTap,
			})
		}
		p.Tables.Advanced.Strategies = make(map[string]honing.AdvancedStrategy, len(a.Strategies))
		for name, s := range a.Strategies {
			st := honing.AdvancedStrategy{Juice: s.Juice}
			for _, g := range s.Gains {
				st.Gains = append(st.Gains, honing.Gain{XP: g.XP, Prob: g.Prob})
			}
			p.Tables.Advanced.Strategies[name] = st
		}
	}

	opts, timeout, trials, err := solverOptions(raw.Solver)
	if err != nil {
		return Params{}, err
	}
	if o.Seed != nil {
		opts.Anneal.Seed = *o.Seed
	}
	if o.MaxIter != nil && *o.MaxIter > 0 {
		opts.Anneal.MaxIter = *o.MaxIter
		opts.BisectIter = min(opts.BisectIter, *o.MaxIter)
		opts.PolishIter = min(opts.PolishIter, *o.MaxIter)
		opts.Anneal.MinIter = min(opts.Anneal.MinIter, *o.MaxIter)
	}
	if o.Timeout != nil {
		timeout = *o.Timeout
	}
	p.Options, p.Timeout, p.HistogramTrials = opts, timeout, trials
	return p, nil
}

func costs(a Amounts) honing.Costs {
	var c honing.Costs
	for k, v := range a {
		if r, ok := honing.ParseResource(k); ok {
			c[r] = v
		}
	}
	return c
}

func solverOptions(s *SolverConfig) (solver.Options, time.Duration, int, error) {
	opts := solver.DefaultOptions()
	trials := 20000
	if s == nil {
		return opts, 0, trials, nil
	}
	a := &opts.Anneal
	setVal(&a.MaxIter, s.MaxIter)
	setVal(&a.MinIter, s.MinIter)
	setVal(&a.ItersPerTemp, s.ItersPerTemp)
	setVal(&a.RestartPeriod, s.RestartPeriod)
	setVal(&a.RestartMin, s.RestartMin)
	setVal(&a.CrossoverProb, s.CrossoverProb)
	setVal(&a.MultiProb, s.MultiProb)
	setVal(&a.MultiMax, s.MultiMax)
	setVal(&a.Temperature, s.Temperature)
	setVal(&a.InitialScale, s.InitialScale)
	setVal(&a.ScalerBatch, s.ScalerBatch)
	setVal(&a.LearningRate, s.LearningRate)
	setVal(&a.KSTolerance, s.KSTolerance)
	setVal(&a.Seed, s.Seed)
	if s.Neighbour != "" {
		a.Neighbour, _ = anneal.ParseNeighbour(s.Neighbour)
	}
	if s.TargetStart != nil || s.TargetEnd != nil {
		start, end := 0.8, 0.001
		setVal(&start, s.TargetStart)
		setVal(&end, s.TargetEnd)
		if start <= 0 || end <= 0 {
			return opts, 0, 0, errors.Wrap(ErrInvalid, "solver target rates must be > 0")
		}
		a.Target = anneal.ExpDecay(start, end)
	}
	setVal(&opts.BruteThreshold, s.BruteThreshold)
	setVal(&opts.ChanceTolerance, s.ChanceTolerance)
	setVal(&opts.MaxOuterIter, s.MaxOuterIter)
	setVal(&opts.BisectIter, s.BisectIter)
	setVal(&opts.PolishIter, s.PolishIter)
	setVal(&opts.Penalty, s.Penalty)
	setVal(&trials, s.HistogramTrials)

	var timeout time.Duration
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return opts, 0, 0, errors.Wrap(ErrInvalid, "solver.timeout")
		}
		timeout = d
	}
	return opts, timeout, trials, nil
}

func setVal[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
