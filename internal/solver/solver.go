// Package solver answers cost-to-chance and chance-to-cost questions for a
// honing problem.
package solver

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/xtding233/honing-forecast/internal/anneal"
	"github.com/xtding233/honing-forecast/internal/honing"
	"github.com/xtding233/honing-forecast/internal/state"
	"github.com/xtding233/honing-forecast/internal/tail"
)

// Options tunes a Solver. Zero values take the defaults.
type Options struct {
	Anneal         anneal.Config
	Annealer       anneal.Annealer // nil selects anneal.Default()
	BruteThreshold int

	ChanceTolerance float64 // bisection stops once P(hi) - p* is within this
	MaxOuterIter    int
	BisectIter      int     // annealer iterations per bisection step
	PolishIter      int     // annealer iterations of the final cost polish
	Penalty         float64 // cost polish penalty per unit of missing chance
}

// DefaultOptions returns the tuned defaults.
func DefaultOptions() Options {
	return Options{
		Anneal:          anneal.DefaultConfig(),
		BruteThreshold:  tail.DefaultBruteThreshold,
		ChanceTolerance: 1e-3,
		MaxOuterIter:    30,
		BisectIter:      1000,
		PolishIter:      2000,
		Penalty:         100,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Annealer == nil {
		o.Annealer = anneal.Default()
	}
	if o.BruteThreshold <= 0 {
		o.BruteThreshold = d.BruteThreshold
	}
	if o.ChanceTolerance <= 0 {
		o.ChanceTolerance = d.ChanceTolerance
	}
	if o.MaxOuterIter <= 0 {
		o.MaxOuterIter = d.MaxOuterIter
	}
	if o.BisectIter <= 0 {
		o.BisectIter = d.BisectIter
	}
	if o.PolishIter <= 0 {
		o.PolishIter = d.PolishIter
	}
	if o.Penalty <= 0 {
		o.Penalty = d.Penalty
	}
	return o
}

// Solver holds one problem and its distributions. A Solver may serve
// concurrent solves; every solve owns its states and counters.
type Solver struct {
	problem honing.Problem
	cache   *state.Cache
	opts    Options
}

// New builds the distributions of p.
func New(p honing.Problem, opts Options) (*Solver, error) {
	c, err := state.NewCache(p)
	if err != nil {
		return nil, err
	}
	return &Solver{problem: p, cache: c, opts: opts.withDefaults()}, nil
}

// Problem returns the problem being solved.
func (s *Solver) Problem() honing.Problem { return s.problem }

// ChanceResult answers a cost-to-chance question.
type ChanceResult struct {
	Chance      float64     `json:"chance"`
	Skips       []int       `json:"skips"`
	Budget      int64       `json:"effective_budget"`
	Cancelled   bool        `json:"cancelled,omitempty"`
	Performance Performance `json:"performance"`
}

// CostResult answers a chance-to-cost question.
type CostResult struct {
	Budget         honing.Costs `json:"budget"`
	RealizedChance float64      `json:"realized_chance"`
	Skips          []int        `json:"skips"`
	ExpectedCost   float64      `json:"expected_cost"`
	Cancelled      bool         `json:"cancelled,omitempty"`
	Performance    Performance  `json:"performance"`
}

// run is one annealing pass at a scalar budget.
type run struct {
	best      *state.Bundle
	chance    float64
	history   []anneal.HistoryPoint
	iters     int
	restarts  int
	cancelled bool
}

func (s *Solver) anneal(ctx context.Context, ev *tail.Evaluator, seed *state.Bundle, obj anneal.Objective, iters int, budget int64) (run, error) {
	cfg := s.opts.Anneal
	if iters > 0 {
		cfg.MaxIter = iters
	}
	res, err := s.opts.Annealer.Solve(ctx, seed, obj, ev, cfg)
	if err != nil {
		return run{}, err
	}
	return run{
		best:      res.Best,
		chance:    res.Best.Evaluate(ev, budget).P,
		history:   res.History,
		iters:     res.Iterations,
		restarts:  res.Restarts,
		cancelled: res.Cancelled,
	}, nil
}

// CostToChance returns the best chance of finishing every upgrade within
// budget and the strategy attaining it.
func (s *Solver) CostToChance(ctx context.Context, budget honing.Costs) (ChanceResult, error) {
	var c tail.Counters
	ev := tail.New(&c, s.opts.BruteThreshold)
	eff := s.problem.EffectiveBudget(budget)
	seed, err := state.New(s.cache, nil)
	if err != nil {
		return ChanceResult{}, err
	}
	start := time.Now()
	obj := anneal.ChanceObjective{Budget: eff, Target: 1, KSTolerance: s.opts.Anneal.KSTolerance}
	r, err := s.anneal(ctx, ev, seed, obj, 0, eff)
	if err != nil {
		return ChanceResult{}, err
	}
	perf := NewPerformance(c, r.history)
	perf.Iterations, perf.Restarts = r.iters, r.restarts
	log.Info().
		Int("upgrades", s.cache.Len()).
		Int64("budget", eff).
		Float64("chance", r.chance).
		Int64("states", c.StatesEvaluated).
		Dur("took", time.Since(start)).
		Msg("cost to chance")
	return ChanceResult{
		Chance:      r.chance,
		Skips:       r.best.Skips(),
		Budget:      eff,
		Cancelled:   r.cancelled,
		Performance: perf,
	}, nil
}

// ChanceToCost finds the smallest multiple of the worst-case consumption
// whose best strategy reaches desired, then polishes that strategy for
// expected cost.
func (s *Solver) ChanceToCost(ctx context.Context, desired float64) (CostResult, error) {
	if math.IsNaN(desired) || desired < 0 || desired > 1 {
		return CostResult{}, errors.Wrapf(honing.ErrInputShape, "desired chance %v outside [0,1]", desired)
	}
	var c tail.Counters
	ev := tail.New(&c, s.opts.BruteThreshold)
	start := time.Now()
	ref := s.problem.MaxNeed()

	seed, err := state.New(s.cache, nil)
	if err != nil {
		return CostResult{}, err
	}
	// the full reference budget covers every outcome
	hiSkips := seed.Skips()
	lo, hi, pHi := 0.0, 1.0, 1.0
	var history []anneal.HistoryPoint
	iters, restarts := 0, 0
	cancelled := false
	for step := 0; step < s.opts.MaxOuterIter && pHi-desired > s.opts.ChanceTolerance; step++ {
		mid := lo + (hi-lo)/2
		eff := s.problem.EffectiveBudget(ref.Scale(mid))
		obj := anneal.ChanceObjective{Budget: eff, Target: desired, KSTolerance: s.opts.Anneal.KSTolerance}
		r, err := s.anneal(ctx, ev, seed, obj, s.opts.BisectIter, eff)
		if err != nil {
			return CostResult{}, err
		}
		history = append(history, r.history...)
		iters += r.iters
		restarts += r.restarts
		log.Debug().Int("step", step).Float64("m", mid).Int64("budget", eff).Float64("chance", r.chance).Msg("bisect")
		if r.chance >= desired {
			hi, pHi, hiSkips = mid, r.chance, r.best.Skips()
		} else {
			lo = mid
		}
		// warm start the next step from the best strategy found
		seed = r.best
		if r.cancelled {
			cancelled = true
			break
		}
	}

	budget := ref.Scale(hi)
	eff := s.problem.EffectiveBudget(budget)
	best, err := state.New(s.cache, hiSkips)
	if err != nil {
		return CostResult{}, err
	}
	chance := best.Evaluate(ev, eff).P
	if !cancelled {
		obj := anneal.CostObjective{
			Budget:      eff,
			Target:      desired,
			Norm:        math.Max(best.ExpectedCost(), 1),
			Penalty:     s.opts.Penalty,
			KSTolerance: s.opts.Anneal.KSTolerance,
		}
		r, err := s.anneal(ctx, ev, best, obj, s.opts.PolishIter, eff)
		if err != nil {
			return CostResult{}, err
		}
		iters += r.iters
		restarts += r.restarts
		cancelled = r.cancelled
		if r.chance >= math.Min(desired, chance) && r.best.ExpectedCost() <= best.ExpectedCost() {
			best, chance = r.best, r.chance
		}
	}

	perf := NewPerformance(c, history)
	perf.Iterations, perf.Restarts = iters, restarts
	log.Info().
		Int("upgrades", s.cache.Len()).
		Float64("desired", desired).
		Float64("chance", chance).
		Float64("m", hi).
		Int64("states", c.StatesEvaluated).
		Dur("took", time.Since(start)).
		Msg("chance to cost")
	return CostResult{
		Budget:         budget,
		RealizedChance: chance,
		Skips:          best.Skips(),
		ExpectedCost:   best.ExpectedCost(),
		Cancelled:      cancelled,
		Performance:    perf,
	}, nil
}

// Chance evaluates one fixed strategy at budget without searching.
func (s *Solver) Chance(budget honing.Costs, skips []int) (float64, error) {
	b, err := state.New(s.cache, skips)
	if err != nil {
		return 0, err
	}
	return b.Evaluate(tail.New(nil, s.opts.BruteThreshold), s.problem.EffectiveBudget(budget)).P, nil
}
