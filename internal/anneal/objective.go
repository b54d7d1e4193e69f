package anneal

import (
	"math"

	"github.com/xtding233/honing-forecast/internal/state"
	"github.com/xtding233/honing-forecast/internal/tail"
)

// Objective scores bundles for the annealer. Lower energy is better.
type Objective interface {
	// Energy evaluates b; prev is the state b was derived from, or nil.
	Energy(ev *tail.Evaluator, b, prev *state.Bundle) float64
	// Metric is the user-facing figure recorded in the best history.
	Metric(b *state.Bundle) float64
	// Done reports that b already satisfies the caller.
	Done(b *state.Bundle) bool
}

// ChanceObjective maximizes P(total cost <= Budget).
type ChanceObjective struct {
	Budget      int64
	Target      float64 // Done once reached; zero never stops early
	KSTolerance float64
}

func (o ChanceObjective) Energy(ev *tail.Evaluator, b, prev *state.Bundle) float64 {
	return -b.EvaluateNear(ev, o.Budget, prev, o.KSTolerance).P
}

func (o ChanceObjective) Metric(b *state.Bundle) float64 {
	r, _ := b.Last()
	return r.P
}

func (o ChanceObjective) Done(b *state.Bundle) bool {
	r, ok := b.Last()
	return ok && o.Target > 0 && r.P >= o.Target
}

// CostObjective minimizes expected cost while keeping P(total cost <= Budget)
// at or above Target.
type CostObjective struct {
	Budget      int64
	Target      float64
	Norm        float64 // divides the expected cost; usually the seed's
	Penalty     float64 // per unit of missing probability
	KSTolerance float64
}

func (o CostObjective) Energy(ev *tail.Evaluator, b, prev *state.Bundle) float64 {
	p := b.EvaluateNear(ev, o.Budget, prev, o.KSTolerance).P
	norm := o.Norm
	if !(norm > 0) {
		norm = 1
	}
	return b.ExpectedCost()/norm + o.Penalty*math.Max(0, o.Target-p)
}

func (o CostObjective) Metric(b *state.Bundle) float64 { return b.ExpectedCost() }

func (o CostObjective) Done(*state.Bundle) bool { return false }
