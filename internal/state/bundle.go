package state

import (
	"github.com/pkg/errors"

	"github.com/xtding233/honing-forecast/internal/dist"
	"github.com/xtding233/honing-forecast/internal/honing"
	"github.com/xtding233/honing-forecast/internal/tail"
)

// Bundle is one search state: a skip count per upgrade plus artifacts derived
// from it. Derived artifacts are rebuilt lazily after SetSkip.
type Bundle struct {
	cache *Cache
	skips []int

	special []float64
	support [][]int64
	mean    float64
	meanOK  bool

	// last evaluation
	evaluated bool
	budget    int64
	result    tail.Result
}

// New returns a bundle over c with the given skips; nil means all zero.
func New(c *Cache, skips []int) (*Bundle, error) {
	if skips == nil {
		skips = make([]int, c.Len())
	}
	if len(skips) != c.Len() {
		return nil, errors.Wrapf(honing.ErrInputShape, "%d skips for %d upgrades", len(skips), c.Len())
	}
	b := &Bundle{cache: c, skips: append([]int(nil), skips...), support: make([][]int64, c.Len())}
	for i, s := range skips {
		if s < 0 || s > c.MaxSkip(i) {
			return nil, errors.Wrapf(honing.ErrInputShape, "upgrade %d: skip %d outside [0,%d]", i, s, c.MaxSkip(i))
		}
	}
	return b, nil
}

func (b *Bundle) Cache() *Cache { return b.cache }
func (b *Bundle) Len() int      { return len(b.skips) }
func (b *Bundle) Skip(i int) int { return b.skips[i] }

// Skips returns a copy of the strategy.
func (b *Bundle) Skips() []int { return append([]int(nil), b.skips...) }

// SetSkip sets upgrade i's skip, clamped to [0, pity].
func (b *Bundle) SetSkip(i, s int) {
	s = max(0, min(s, b.cache.MaxSkip(i)))
	if b.skips[i] == s {
		return
	}
	b.skips[i] = s
	b.special = nil
	b.support[i] = nil
	b.meanOK = false
	b.evaluated = false
}

// Clone returns a bundle with its own strategy and caches. The distribution
// cache is shared.
func (b *Bundle) Clone() *Bundle {
	nb := *b
	nb.skips = append([]int(nil), b.skips...)
	// cached slices are replaced, never written in place, so sharing is safe
	nb.support = make([][]int64, len(b.support))
	copy(nb.support, b.support)
	return &nb
}

// CopyFrom makes b's strategy equal to o's, keeping what is still valid.
func (b *Bundle) CopyFrom(o *Bundle) {
	for i, s := range o.skips {
		b.SetSkip(i, s)
	}
	if o.evaluated && !b.evaluated {
		b.evaluated, b.budget, b.result = true, o.budget, o.result
	}
}

// Dists returns the distribution of every upgrade under the current strategy.
func (b *Bundle) Dists() []*dist.Dist {
	ds := make([]*dist.Dist, len(b.skips))
	for i, s := range b.skips {
		ds[i] = b.cache.Dist(i, s)
	}
	return ds
}

// Evaluate returns P(total cost <= budget), reusing the last result when the
// strategy and budget are unchanged.
func (b *Bundle) Evaluate(ev *tail.Evaluator, budget int64) tail.Result {
	if b.evaluated && b.budget == budget {
		return b.result
	}
	ev.Counters.StatesEvaluated++
	b.result = ev.Evaluate(b.Dists(), budget)
	b.evaluated, b.budget = true, budget
	return b.result
}

// EvaluateNear is Evaluate with a shortcut: when prev was evaluated at the
// same budget and the summed KS distance between the two strategies is at
// most tol, prev's probability is reused.
func (b *Bundle) EvaluateNear(ev *tail.Evaluator, budget int64, prev *Bundle, tol float64) tail.Result {
	if b.evaluated && b.budget == budget {
		return b.result
	}
	if prev != nil && prev.evaluated && prev.budget == budget && tol > 0 && b.KSDistance(prev) <= tol {
		ev.Counters.StatesEvaluated++
		ev.Counters.KS++
		b.result = tail.Result{P: prev.result.P, Method: tail.KS}
		b.evaluated, b.budget = true, budget
		return b.result
	}
	return b.Evaluate(ev, budget)
}

// Last returns the most recent evaluation, if any.
func (b *Bundle) Last() (tail.Result, bool) { return b.result, b.evaluated }

// ExpectedCost is E[total gold-equivalent cost].
func (b *Bundle) ExpectedCost() float64 {
	if !b.meanOK {
		var m float64
		for i, s := range b.skips {
			m += b.cache.Dist(i, s).Mean()
		}
		b.mean, b.meanOK = m, true
	}
	return b.mean
}

// SpecialProbs returns the distribution of how many upgrades end on their
// pity tap: element k is P(exactly k upgrades hit pity).
func (b *Bundle) SpecialProbs() []float64 {
	if b.special == nil {
		out := make([]float64, len(b.skips)+1)
		out[0] = 1
		for i, s := range b.skips {
			q := b.cache.Dist(i, s).PityProb()
			for k := i + 1; k >= 1; k-- {
				out[k] = out[k]*(1-q) + out[k-1]*q
			}
			out[0] *= 1 - q
		}
		b.special = out
	}
	return append([]float64(nil), b.special...)
}

// IndividualSupport is the ordered set of costs upgrade i can end on.
func (b *Bundle) IndividualSupport(i int) []int64 {
	if b.support[i] == nil {
		b.support[i] = b.cache.Dist(i, b.skips[i]).Support()
	}
	return append([]int64(nil), b.support[i]...)
}

// KSDistance sums the KS distance of every upgrade whose skip differs.
func (b *Bundle) KSDistance(o *Bundle) float64 {
	var d float64
	for i, s := range b.skips {
		if o.skips[i] != s {
			d += dist.KS(b.cache.Dist(i, s), b.cache.Dist(i, o.skips[i]))
		}
	}
	return d
}

// Snapshot is a serializable view of a bundle.
type Snapshot struct {
	Skips        []int     `json:"skips"`
	Chance       float64   `json:"chance"`
	ExpectedCost float64   `json:"expected_cost"`
	SpecialProbs []float64 `json:"special_probs"`
}

func (b *Bundle) Snapshot() Snapshot {
	return Snapshot{
		Skips:        b.Skips(),
		Chance:       b.result.P,
		ExpectedCost: b.ExpectedCost(),
		SpecialProbs: b.SpecialProbs(),
	}
}
