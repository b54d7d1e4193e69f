// Package tail computes P(X_1 + ... + X_n <= B) for independent upgrade cost
// distributions.
package tail

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/xtding233/honing-forecast/internal/dist"
)

const (
	// DefaultBruteThreshold caps the support product convolved exactly.
	DefaultBruteThreshold = 4096

	maxNewton = 64
	newtonTol = 1e-9 // on K'(t) - x, in standard deviations
	nearMean  = 1e-6 // |w| below this uses Edgeworth
)

// Result is one tail probability and how it was obtained.
type Result struct {
	P      float64
	Method Method
}

// Evaluator dispatches between exact and approximate tail computations and
// records what it did in Counters.
type Evaluator struct {
	BruteThreshold int
	Counters       *Counters
}

// New returns an evaluator writing into c.
func New(c *Counters, bruteThreshold int) *Evaluator {
	if c == nil {
		c = &Counters{}
	}
	if bruteThreshold <= 0 {
		bruteThreshold = DefaultBruteThreshold
	}
	return &Evaluator{BruteThreshold: bruteThreshold, Counters: c}
}

func bounds(ds []*dist.Dist) (lo, hi int64) {
	for _, d := range ds {
		lo += d.Min()
		hi += d.Max()
	}
	return lo, hi
}

// Evaluate returns P(sum of ds <= budget).
func (e *Evaluator) Evaluate(ds []*dist.Dist, budget int64) Result {
	lo, hi := bounds(ds)
	if budget >= hi {
		e.Counters.Trivial++
		return Result{P: 1, Method: Trivial}
	}
	if budget < lo {
		e.Counters.Trivial++
		return Result{P: 0, Method: Trivial}
	}
	if supportProductAtMost(ds, e.BruteThreshold) {
		e.Counters.Brute++
		return Result{P: BruteCDF(ds, budget), Method: Brute}
	}
	e.Counters.SA++
	p, m := e.saddlepoint(ds, budget)
	return Result{P: p, Method: m}
}

func supportProductAtMost(ds []*dist.Dist, limit int) bool {
	n := 1
	for _, d := range ds {
		n *= d.Len()
		if n > limit {
			return false
		}
	}
	return true
}

// BruteCDF convolves ds exactly, dropping partial sums above budget.
func BruteCDF(ds []*dist.Dist, budget int64) float64 {
	vals := []int64{0}
	probs := []float64{1}
	for _, d := range ds {
		next := make(map[int64]float64, len(vals)*d.Len())
		for i, v := range vals {
			for j := 0; j < d.Len(); j++ {
				x, q := d.Atom(j)
				if v+x > budget {
					break
				}
				next[v+x] += probs[i] * q
			}
		}
		vals = vals[:0]
		for v := range next {
			vals = append(vals, v)
		}
		sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
		probs = make([]float64, len(vals))
		for i, v := range vals {
			probs[i] = next[v]
		}
	}
	var p float64
	for _, q := range probs {
		p += q
	}
	return clamp01(p)
}

// Saddlepoint returns the Lugannani-Rice estimate regardless of support
// size, falling back to Edgeworth like Evaluate does.
func (e *Evaluator) Saddlepoint(ds []*dist.Dist, budget int64) (float64, Method) {
	lo, hi := bounds(ds)
	if budget >= hi {
		return 1, Trivial
	}
	if budget < lo {
		return 0, Trivial
	}
	return e.saddlepoint(ds, budget)
}

// standardized holds every non-degenerate distribution centered on its mean
// and scaled by the standard deviation of the sum.
type standardized struct {
	xs, ps [][]float64
	maxAbs float64
}

func (s *standardized) at(t float64) dist.Cumulants {
	var c dist.Cumulants
	for i := range s.xs {
		c = c.Add(dist.CumulantsAt(s.xs[i], s.ps[i], t))
	}
	return c
}

func (e *Evaluator) saddlepoint(ds []*dist.Dist, budget int64) (float64, Method) {
	var mu, variance float64
	var lo, span int64
	for _, d := range ds {
		mu += d.Mean()
		variance += d.Variance()
		lo += d.Min()
		span = dist.GCD(span, d.Span())
	}
	sigma := math.Sqrt(variance)

	// largest attainable lattice point <= budget, then half a step up
	k := (budget - lo) / span
	x := float64(lo+k*span) + float64(span)/2
	z := (x - mu) / sigma
	h := float64(span) / sigma

	st := &standardized{}
	for _, d := range ds {
		if d.Len() < 2 {
			continue
		}
		xs := make([]float64, d.Len())
		ps := make([]float64, d.Len())
		for j := range xs {
			v, p := d.Atom(j)
			xs[j] = (float64(v) - d.Mean()) / sigma
			ps[j] = p
			if a := math.Abs(xs[j]); a > st.maxAbs {
				st.maxAbs = a
			}
		}
		st.xs = append(st.xs, xs)
		st.ps = append(st.ps, ps)
	}

	t, ok := e.solve(st, z)
	if !ok {
		return e.edgeworth(st, z), Edgeworth
	}
	c := st.at(t)
	w2 := 2 * (t*z - c.K)
	if w2 < 0 {
		w2 = 0
	}
	w := math.Copysign(math.Sqrt(w2), t)
	if math.Abs(w) < nearMean {
		return e.edgeworth(st, z), Edgeworth
	}
	u := t * math.Sqrt(c.K2)
	if h > 0 {
		u = 2 / h * math.Sinh(t*h/2) * math.Sqrt(c.K2)
	}
	p := distuv.UnitNormal.CDF(w) + distuv.UnitNormal.Prob(w)*(1/w-1/u)
	if math.IsNaN(p) || p < 0 || p > 1 {
		return e.edgeworth(st, z), Edgeworth
	}
	e.Counters.Lugannani++
	return p, Saddlepoint
}

// solve finds t with K'(t) = z using Halley steps inside a bracket, bisecting
// (and expanding open bracket sides by doubling) whenever a step escapes the
// bracket or the residual grows twice in a row.
func (e *Evaluator) solve(st *standardized, z float64) (float64, bool) {
	c := e.Counters
	tMax := math.Inf(1)
	if st.maxAbs > 0 {
		tMax = dist.ExpBound / st.maxAbs
	}
	lo, hi := math.Inf(-1), math.Inf(1)
	t := 0.0
	prev := math.Inf(1)
	worse := 0
	for it := 0; it < maxNewton; it++ {
		c.NewtonIterations++
		cg := st.at(t)
		f := cg.K1 - z
		if math.Abs(f) < newtonTol {
			return t, true
		}
		if f < 0 {
			lo = t
		} else {
			hi = t
		}
		if hi-lo <= 1e-14*math.Max(1, math.Abs(t)) {
			return t, true
		}
		if math.Abs(f) > prev {
			worse++
		} else {
			worse = 0
		}
		prev = math.Abs(f)

		next := math.NaN()
		halley := false
		if worse < 2 && cg.K2 > 0 {
			if den := 2*cg.K2*cg.K2 - f*cg.K3; den > 0 {
				next = t - 2*f*cg.K2/den
				halley = true
			} else {
				next = t - f/cg.K2
			}
		}
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= lo || next >= hi {
			c.Bisection++
			switch {
			case math.IsInf(hi, 1):
				next = math.Max(2*t, 1)
			case math.IsInf(lo, -1):
				next = math.Min(2*t, -1)
			default:
				next = lo + (hi-lo)/2
			}
			worse = 0
		} else if halley {
			c.Householder++
		}
		if math.Abs(next) > tMax {
			if math.Abs(t) >= tMax {
				c.Overflow++
				return 0, false
			}
			next = math.Copysign(tMax, next)
		}
		t = next
	}
	c.NonConvergence++
	return t, false
}

// edgeworth is the normal approximation with a skewness correction, at the
// standardized evaluation point z.
func (e *Evaluator) edgeworth(st *standardized, z float64) float64 {
	e.Counters.Edgeworth++
	skew := st.at(0).K3
	p := distuv.UnitNormal.CDF(z) - distuv.UnitNormal.Prob(z)*skew/6*(z*z-1)
	return clamp01(p)
}

func clamp01(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
