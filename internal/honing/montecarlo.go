package honing

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Stats summarizes simulated consumption of one resource.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	// sorted raw samples, kept for cumulative percentiles
	Samples []int64 `json:"-"`
	trials  []int64 // in simulation order
}

// Trial returns what the i-th simulated run consumed.
func (s Stats) Trial(i int) int64 { return s.trials[i] }

// Percentile interpolates the sorted samples at p in [0,1].
func (s Stats) Percentile(p float64) float64 {
	cp := s.Samples
	n := len(cp)
	if n == 0 {
		return 0
	}
	if n == 1 || p <= 0 {
		return float64(cp[0])
	}
	if p >= 1 {
		return float64(cp[n-1])
	}
	pos := p * float64(n-1)
	i := int(math.Floor(pos))
	f := pos - float64(i)
	if i+1 >= n {
		return float64(cp[i])
	}
	return float64(cp[i])*(1-f) + float64(cp[i+1])*f
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int64) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	// mean
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// variance (population)
	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)

	cp := append([]int64(nil), xs...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	st := Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  math.Sqrt(variance),
		Samples: cp,
		trials:  xs,
	}
	st.P50 = st.Percentile(0.50)
	st.P90 = st.Percentile(0.90)
	st.P99 = st.Percentile(0.99)
	return st
}

// Simulate replays one upgrade with skip protected taps and returns what it
// consumed.
func (u Upgrade) Simulate(skip int, rng RandomSource) (Costs, error) {
	if skip < 0 || skip > u.Pity() {
		return Costs{}, errors.Wrapf(ErrInputShape, "skip %d outside [0,%d]", skip, u.Pity())
	}
	var spent Costs
	pt := NewPityTracker(u.Pity(), rng)
	for j := 0; j < skip; j++ {
		spent = spent.Add(u.Taps[j].SkipCost)
	}
	pt.Skip(skip)
	for j := skip; j < len(u.Taps); j++ {
		spent = spent.Add(u.Taps[j].Cost)
		hit, err := pt.Tap(u.Taps[j].Prob)
		if err != nil {
			return Costs{}, err
		}
		if hit {
			return spent, nil
		}
	}
	return Costs{}, errors.Wrap(ErrInternal, "upgrade passed its pity tap")
}

// RunMonteCarlo simulates the whole problem under skips and returns per
// resource statistics of the total consumption.
func RunMonteCarlo(p Problem, skips []int, trials int, rng RandomSource) ([NumResources]Stats, error) {
	var out [NumResources]Stats
	if trials <= 0 {
		return out, nil
	}
	if len(skips) != len(p.Upgrades) {
		return out, errors.Wrapf(ErrInputShape, "%d skips for %d upgrades", len(skips), len(p.Upgrades))
	}
	var samples [NumResources][]int64
	for r := range samples {
		samples[r] = make([]int64, trials)
	}
	for i := 0; i < trials; i++ {
		var total Costs
		for ui, u := range p.Upgrades {
			c, err := u.Simulate(skips[ui], rng)
			if err != nil {
				return out, err
			}
			total = total.Add(c)
		}
		for r := range total {
			samples[r][i] = total[r]
		}
	}
	for r := range samples {
		out[r] = calcStats(samples[r])
	}
	return out, nil
}
