package anneal

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/xtding233/honing-forecast/internal/honing"
	"github.com/xtding233/honing-forecast/internal/state"
	"github.com/xtding233/honing-forecast/internal/tail"
)

// Adaptive anneals with a scaler-controlled temperature, progress-scaled
// restarts from the best state and self-crossover between identical upgrades.
type Adaptive struct{}

func (Adaptive) Name() string { return "adaptive" }

func (Adaptive) Solve(ctx context.Context, init *state.Bundle, obj Objective, ev *tail.Evaluator, cfg Config) (Result, error) {
	if init == nil {
		return Result{}, errors.Wrap(honing.ErrInputShape, "nil initial state")
	}
	cfg = cfg.withDefaults()
	rng := honing.NewSeededRNG(cfg.Seed)
	sc := NewScaler(cfg.InitialScale, cfg.ScalerBatch, cfg.LearningRate, cfg.Target)
	tr := newTracker(ev, obj)
	twins := init.Cache().Twins()

	cur := init.Clone()
	curE := obj.Energy(ev, cur, nil)
	tr.improve(cur, curE)

	stale := 0
	k := 0
	for ; k < cfg.MaxIter; k++ {
		progress := float64(k) / float64(cfg.MaxIter)
		if k%cfg.ItersPerTemp == 0 {
			if stopped(ctx, cfg.Deadline) {
				tr.res.Cancelled = true
				break
			}
			if k > 0 && cfg.Progress != nil {
				cfg.Progress(tr.res.Best.Snapshot(), progress)
			}
		}
		if obj.Done(tr.res.Best) && k >= cfg.MinIter {
			break
		}

		cand := cur.Clone()
		cfg.move(cand, twins, rng)
		candE := obj.Energy(ev, cand, cur)
		delta := candE - curE
		u := rng.Float64()
		accepted := delta <= 0
		if !accepted {
			accepted = u < math.Exp(-delta/(cfg.Temperature*sc.Scale()))
			sc.Observe(accepted, progress)
		}
		if accepted {
			cur, curE = cand, candE
		}

		if curE < tr.res.BestEnergy {
			tr.improve(cur, curE)
			stale = 0
		} else {
			stale++
		}

		if stale >= cfg.restartAfter(progress) {
			cur = tr.res.Best.Clone()
			cfg.reseed(cur, twins, rng)
			curE = obj.Energy(ev, cur, tr.res.Best)
			stale = 0
			tr.res.Restarts++
			log.Debug().Int("iter", k).Float64("best", tr.res.BestMetric).Float64("scale", sc.Scale()).Msg("anneal restart")
			if curE < tr.res.BestEnergy {
				tr.improve(cur, curE)
			}
		}
	}
	tr.res.Iterations = k
	return tr.res, nil
}
