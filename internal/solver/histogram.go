package solver

import (
	"context"

	"github.com/xtding233/honing-forecast/internal/honing"
)

// Quantiles is the number of points in each cumulative percentile curve.
const Quantiles = 21

// HistogramResult describes simulated consumption per resource under one
// strategy.
type HistogramResult struct {
	// CumPercentiles[r] lists [amount, cumulative probability] pairs.
	CumPercentiles [][][2]float64 `json:"cum_percentiles"`
	Average        []float64      `json:"average"`
	Budgets        []float64      `json:"budgets"`
	// Chance within budget of every resource at once, per the simulation.
	Chance float64 `json:"chance"`
	Trials int     `json:"trials"`
}

// Histogram simulates the problem trials times under skips (nil means no
// skips) and reports per-resource consumption curves next to budget.
func (s *Solver) Histogram(ctx context.Context, budget honing.Costs, skips []int, trials int, seed uint64) (HistogramResult, error) {
	if skips == nil {
		skips = make([]int, len(s.problem.Upgrades))
	}
	stats, err := honing.RunMonteCarlo(s.problem, skips, trials, honing.NewSeededRNG(seed))
	if err != nil {
		return HistogramResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return HistogramResult{}, err
	}
	out := HistogramResult{
		CumPercentiles: make([][][2]float64, honing.NumResources),
		Average:        make([]float64, honing.NumResources),
		Budgets:        make([]float64, honing.NumResources),
		Trials:         trials,
	}
	for r, st := range stats {
		curve := make([][2]float64, Quantiles)
		for i := range curve {
			q := float64(i) / float64(Quantiles-1)
			curve[i] = [2]float64{st.Percentile(q), q}
		}
		out.CumPercentiles[r] = curve
		out.Average[r] = st.Mean
		out.Budgets[r] = float64(budget[r])
	}
	if trials > 0 {
		within := 0
		for i := 0; i < trials; i++ {
			ok := true
			for r := range stats {
				if stats[r].Trial(i) > budget[r] {
					ok = false
					break
				}
			}
			if ok {
				within++
			}
		}
		out.Chance = float64(within) / float64(trials)
	}
	return out, nil
}
