// Package anneal searches skip strategies by simulated annealing.
package anneal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/xtding233/honing-forecast/internal/honing"
	"github.com/xtding233/honing-forecast/internal/state"
	"github.com/xtding233/honing-forecast/internal/tail"
)

// Annealer is one annealing variant.
type Annealer interface {
	Name() string
	Solve(ctx context.Context, init *state.Bundle, obj Objective, ev *tail.Evaluator, cfg Config) (Result, error)
}

// HistoryPoint marks an improvement of the best state.
type HistoryPoint struct {
	Seconds float64
	States  int64
	Metric  float64
}

// MarshalJSON writes the point as [seconds, states, metric].
func (h HistoryPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{h.Seconds, float64(h.States), h.Metric})
}

func (h *HistoryPoint) UnmarshalJSON(b []byte) error {
	var v [3]float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	h.Seconds, h.States, h.Metric = v[0], int64(v[1]), v[2]
	return nil
}

// Result is the outcome of one solve. Best is always evaluated, also when
// the solve was cancelled.
type Result struct {
	Best       *state.Bundle
	BestEnergy float64
	BestMetric float64
	History    []HistoryPoint
	Iterations int
	Restarts   int
	Cancelled  bool
}

type tracker struct {
	start time.Time
	ev    *tail.Evaluator
	obj   Objective
	res   Result
}

func newTracker(ev *tail.Evaluator, obj Objective) *tracker {
	return &tracker{start: time.Now(), ev: ev, obj: obj}
}

func (t *tracker) improve(b *state.Bundle, energy float64) {
	t.res.Best = b.Clone()
	t.res.BestEnergy = energy
	t.res.BestMetric = t.obj.Metric(b)
	t.res.History = append(t.res.History, HistoryPoint{
		Seconds: time.Since(t.start).Seconds(),
		States:  t.ev.Counters.StatesEvaluated,
		Metric:  t.res.BestMetric,
	})
}

// stopped reports context cancellation or a passed deadline.
func stopped(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	return !deadline.IsZero() && time.Now().After(deadline)
}

// perturb moves one random upgrade's skip by ±1, reflecting at the bounds.
func perturb(b *state.Bundle, rng honing.RandomSource) {
	i := rng.IntN(b.Len())
	hi := b.Cache().MaxSkip(i)
	d := 1
	if rng.IntN(2) == 0 {
		d = -1
	}
	if hi == 0 {
		return
	}
	s := b.Skip(i) + d
	if s < 0 || s > hi {
		s = b.Skip(i) - d
	}
	b.SetSkip(i, s)
}

// crossover copies the skip of one upgrade onto an identical one.
func crossover(b *state.Bundle, twins [][]int, rng honing.RandomSource) bool {
	if len(twins) == 0 {
		return false
	}
	g := twins[rng.IntN(len(twins))]
	a := rng.IntN(len(g))
	c := rng.IntN(len(g) - 1)
	if c >= a {
		c++
	}
	b.SetSkip(g[a], b.Skip(g[c]))
	return true
}

func multi(b *state.Bundle, n int, rng honing.RandomSource) {
	m := 1 + rng.IntN(n)
	for range m {
		perturb(b, rng)
	}
}

// move applies one neighbour operation of the configured kind.
func (c Config) move(b *state.Bundle, twins [][]int, rng honing.RandomSource) {
	if b.Len() == 0 {
		return
	}
	kind := c.Neighbour
	if kind == Mixed {
		u := rng.Float64()
		switch {
		case u < c.CrossoverProb:
			kind = Crossover
		case u < c.CrossoverProb+c.MultiProb:
			kind = Multi
		default:
			kind = Single
		}
	}
	switch kind {
	case Crossover:
		if !crossover(b, twins, rng) {
			perturb(b, rng)
		}
	case Multi:
		multi(b, c.MultiMax, rng)
	default:
		perturb(b, rng)
	}
}

// reseed perturbs a restart state copied from the best one.
func (c Config) reseed(b *state.Bundle, twins [][]int, rng honing.RandomSource) {
	if b.Len() == 0 {
		return
	}
	if len(twins) > 0 && rng.Float64() < c.CrossoverProb {
		crossover(b, twins, rng)
		return
	}
	multi(b, c.MultiMax, rng)
}
