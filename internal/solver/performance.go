package solver

import (
	"math"
	"strconv"

	"github.com/xtding233/honing-forecast/internal/anneal"
	"github.com/xtding233/honing-forecast/internal/tail"
)

// Float is a float64 whose JSON form renders NaN as -0.0 and infinities as
// the largest finite values, which JSON cannot otherwise carry.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte("-0.0"), nil
	case math.IsInf(v, 1):
		v = math.MaxFloat64
	case math.IsInf(v, -1):
		v = -math.MaxFloat64
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// Performance summarizes the work of one solve. Ratios over an empty
// denominator are NaN.
type Performance struct {
	StatesEvaluated int64                 `json:"states_evaluated"`
	TotalPerState   Float                 `json:"total_per_state"`
	SARatio         Float                 `json:"sa_ratio"`
	BruteRatio      Float                 `json:"brute_ratio"`
	TrivialRatio    Float                 `json:"trivial_ratio"`
	KSPerState      Float                 `json:"ks_per_state"`
	NewtonPerSA     Float                 `json:"newton_per_sa"`
	EdgeworthRatio  Float                 `json:"edgeworth_ratio"`
	BisectionRatio  Float                 `json:"bisection_ratio"`
	BestHistory     []anneal.HistoryPoint `json:"best_history"`
	Counters        tail.Counters         `json:"counters"`
	Annealer        string                `json:"annealer"`
	Iterations      int                   `json:"iterations"`
	Restarts        int                   `json:"restarts"`
}

func ratio(a, b int64) Float {
	return Float(float64(a) / float64(b))
}

// NewPerformance derives the ratios from c.
func NewPerformance(c tail.Counters, history []anneal.HistoryPoint) Performance {
	total := c.Total()
	if history == nil {
		history = []anneal.HistoryPoint{}
	}
	return Performance{
		StatesEvaluated: c.StatesEvaluated,
		TotalPerState:   ratio(total, c.StatesEvaluated),
		SARatio:         ratio(c.SA, total),
		BruteRatio:      ratio(c.Brute, total),
		TrivialRatio:    ratio(c.Trivial, total),
		KSPerState:      ratio(c.KS, c.StatesEvaluated),
		NewtonPerSA:     ratio(c.NewtonIterations, c.SA),
		EdgeworthRatio:  ratio(c.Edgeworth, c.SA),
		BisectionRatio:  ratio(c.Bisection, c.NewtonIterations),
		BestHistory:     history,
		Counters:        c,
		Annealer:        anneal.FeatureVersion,
	}
}
