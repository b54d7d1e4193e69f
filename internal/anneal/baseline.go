package anneal

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/xtding233/honing-forecast/internal/honing"
	"github.com/xtding233/honing-forecast/internal/state"
	"github.com/xtding233/honing-forecast/internal/tail"
)

// Baseline is plain Metropolis annealing on an exponential temperature
// schedule with single-coordinate moves. It is kept as the stable reference
// for comparing against Adaptive.
type Baseline struct{}

func (Baseline) Name() string { return "baseline" }

func (Baseline) temperature(cfg Config, k int) float64 {
	if cfg.MaxIter <= 1 {
		return cfg.EndTemp
	}
	frac := float64(k) / float64(cfg.MaxIter-1)
	return cfg.StartTemp * math.Pow(cfg.EndTemp/cfg.StartTemp, frac)
}

func (bl Baseline) Solve(ctx context.Context, init *state.Bundle, obj Objective, ev *tail.Evaluator, cfg Config) (Result, error) {
	if init == nil {
		return Result{}, errors.Wrap(honing.ErrInputShape, "nil initial state")
	}
	cfg = cfg.withDefaults()
	rng := honing.NewSeededRNG(cfg.Seed)
	tr := newTracker(ev, obj)

	cur := init.Clone()
	curE := obj.Energy(ev, cur, nil)
	tr.improve(cur, curE)

	k := 0
	for ; k < cfg.MaxIter; k++ {
		if k%cfg.ItersPerTemp == 0 {
			if stopped(ctx, cfg.Deadline) {
				tr.res.Cancelled = true
				break
			}
			if k > 0 && cfg.Progress != nil {
				cfg.Progress(tr.res.Best.Snapshot(), float64(k)/float64(cfg.MaxIter))
			}
		}
		if obj.Done(tr.res.Best) && k >= cfg.MinIter {
			break
		}

		cand := cur.Clone()
		if cand.Len() > 0 {
			perturb(cand, rng)
		}
		candE := obj.Energy(ev, cand, cur)
		u := rng.Float64()
		if delta := candE - curE; delta <= 0 || u < math.Exp(-delta/bl.temperature(cfg, k)) {
			cur, curE = cand, candE
		}
		if curE < tr.res.BestEnergy {
			tr.improve(cur, curE)
		}
	}
	tr.res.Iterations = k
	return tr.res, nil
}
