// Package dist models the cost of finishing one upgrade as a finite discrete
// distribution over whole gold-equivalent units.
package dist

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// NormTolerance bounds |Σp - 1| for every built distribution.
const NormTolerance = 1e-12

// ErrSchedule reports a malformed tap schedule.
var ErrSchedule = errors.New("invalid tap schedule")

// Schedule is the scalar view of an upgrade: tap j (0-based) succeeds with
// Probs[j] and costs Costs[j]; when skipped it costs SkipCosts[j]. The last
// tap is the pity tap and always succeeds.
type Schedule struct {
	Probs     []float64
	Costs     []int64
	SkipCosts []int64 // optional; nil means skipping costs the same as tapping
}

// Pity is the number of failures allowed before the forced tap.
func (s Schedule) Pity() int { return len(s.Probs) - 1 }

func (s Schedule) validate() error {
	if len(s.Probs) == 0 {
		return errors.Wrap(ErrSchedule, "no taps")
	}
	if len(s.Costs) != len(s.Probs) {
		return errors.Wrapf(ErrSchedule, "%d probs but %d costs", len(s.Probs), len(s.Costs))
	}
	if s.SkipCosts != nil && len(s.SkipCosts) != len(s.Probs) {
		return errors.Wrapf(ErrSchedule, "%d probs but %d skip costs", len(s.Probs), len(s.SkipCosts))
	}
	for j, p := range s.Probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return errors.Wrapf(ErrSchedule, "tap %d: probability %v", j, p)
		}
		if s.Costs[j] < 0 || (s.SkipCosts != nil && s.SkipCosts[j] < 0) {
			return errors.Wrapf(ErrSchedule, "tap %d: negative cost", j)
		}
	}
	return nil
}

// Dist is an immutable distribution: values strictly increasing, probs > 0.
type Dist struct {
	values   []int64
	probs    []float64
	mean     float64
	variance float64
	pity     float64
}

// Build returns the cost distribution of schedule s when the first skip taps
// are consumed as guaranteed failures.
func Build(s Schedule, skip int) (*Dist, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if skip < 0 || skip > s.Pity() {
		return nil, errors.Wrapf(ErrSchedule, "skip %d outside [0,%d]", skip, s.Pity())
	}

	var prefix int64
	for j := 0; j < skip; j++ {
		if s.SkipCosts != nil {
			prefix += s.SkipCosts[j]
		} else {
			prefix += s.Costs[j]
		}
	}

	atoms := make(map[int64]float64, len(s.Probs)-skip)
	survive := 1.0
	cost := prefix
	last := len(s.Probs) - 1
	var pity float64
	for k := skip; k <= last && survive > 0; k++ {
		cost += s.Costs[k]
		p := s.Probs[k]
		if k == last || p >= 1 {
			atoms[cost] += survive
			if k == last {
				pity = survive
			}
			survive = 0
			break
		}
		if m := survive * p; m > 0 {
			atoms[cost] += m
		}
		survive *= 1 - p
	}

	d := &Dist{pity: pity}
	d.values = make([]int64, 0, len(atoms))
	for v := range atoms {
		d.values = append(d.values, v)
	}
	sort.Slice(d.values, func(i, j int) bool { return d.values[i] < d.values[j] })
	d.probs = make([]float64, len(d.values))
	var total float64
	for i, v := range d.values {
		d.probs[i] = atoms[v]
		total += d.probs[i]
	}
	if math.Abs(total-1) > NormTolerance {
		return nil, errors.Wrapf(ErrNormalization, "distribution sums to %.15f", total)
	}
	d.moments()
	return d, nil
}

// ErrNormalization marks a distribution whose mass is not 1.
var ErrNormalization = errors.New("distribution not normalized")

// Point returns the distribution concentrated on v.
func Point(v int64) *Dist {
	return &Dist{values: []int64{v}, probs: []float64{1}, mean: float64(v), pity: 1}
}

func (d *Dist) moments() {
	var m float64
	for i, v := range d.values {
		m += d.probs[i] * float64(v)
	}
	var acc float64
	for i, v := range d.values {
		x := float64(v) - m
		acc += d.probs[i] * x * x
	}
	d.mean = m
	d.variance = acc
}

// Support returns the attainable values in increasing order.
func (d *Dist) Support() []int64 { return append([]int64(nil), d.values...) }

// Probs returns the atom probabilities aligned with Support.
func (d *Dist) Probs() []float64 { return append([]float64(nil), d.probs...) }

// Len is the number of atoms.
func (d *Dist) Len() int { return len(d.values) }

// Atom returns the i-th (value, prob) pair.
func (d *Dist) Atom(i int) (int64, float64) { return d.values[i], d.probs[i] }

func (d *Dist) Min() int64 { return d.values[0] }
func (d *Dist) Max() int64 { return d.values[len(d.values)-1] }

func (d *Dist) Mean() float64     { return d.mean }
func (d *Dist) Variance() float64 { return d.variance }

// PityProb is the probability that the upgrade ends on its forced tap.
func (d *Dist) PityProb() float64 { return d.pity }

// PMF returns P(cost = k).
func (d *Dist) PMF(k int64) float64 {
	i := sort.Search(len(d.values), func(i int) bool { return d.values[i] >= k })
	if i < len(d.values) && d.values[i] == k {
		return d.probs[i]
	}
	return 0
}

// CDF returns P(cost <= k).
func (d *Dist) CDF(k int64) float64 {
	var c float64
	for i, v := range d.values {
		if v > k {
			break
		}
		c += d.probs[i]
	}
	if c > 1 {
		c = 1
	}
	return c
}

// Sum returns the total probability mass.
func (d *Dist) Sum() float64 {
	var s float64
	for _, p := range d.probs {
		s += p
	}
	return s
}

// Span is the gcd of the gaps between atoms, 0 for a point mass.
func (d *Dist) Span() int64 {
	var g int64
	for _, v := range d.values[1:] {
		g = GCD(g, v-d.values[0])
	}
	return g
}

// GCD of two non-negative integers.
func GCD(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// KS returns the Kolmogorov-Smirnov distance sup_x |F_a(x) - F_b(x)|.
func KS(a, b *Dist) float64 {
	if a == b {
		return 0
	}
	var fa, fb, worst float64
	i, j := 0, 0
	for i < len(a.values) || j < len(b.values) {
		var x int64
		switch {
		case j >= len(b.values):
			x = a.values[i]
		case i >= len(a.values):
			x = b.values[j]
		default:
			x = min(a.values[i], b.values[j])
		}
		for i < len(a.values) && a.values[i] == x {
			fa += a.probs[i]
			i++
		}
		for j < len(b.values) && b.values[j] == x {
			fb += b.probs[j]
			j++
		}
		if d := math.Abs(fa - fb); d > worst {
			worst = d
		}
	}
	return worst
}
