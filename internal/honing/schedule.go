package honing

import (
	"math"

	"github.com/pkg/errors"
)

// maxTaps caps any generated schedule.
const maxTaps = 2000

var ErrScheduleConfig = errors.New("invalid schedule config")

// NormalRules defines how a normal hone ramps toward its pity tap.
// Example: Base=0.03, IncPerFail=0.1, MaxFactor=2 → every failed tap adds
// 0.003 up to 0.06; each failure also adds p·ArtisanRate energy and the tap
// after energy reaches 1 is forced.
type NormalRules struct {
	IncPerFail  float64 // fraction of base added per failure
	MaxFactor   float64 // cap as a multiple of base
	ArtisanRate float64 // energy gained per failed tap, as a fraction of its probability
}

// normalize validates the rules; returns error if invalid.
func (r *NormalRules) normalize() error {
	if r.IncPerFail < 0 || r.MaxFactor < 1 {
		return ErrScheduleConfig
	}
	if r.ArtisanRate <= 0 || r.ArtisanRate > 1 {
		return ErrScheduleConfig
	}
	return nil
}

// tapProb computes the probability of the tap after fails failures.
func (r NormalRules) tapProb(base float64, fails int) float64 {
	p := base + base*r.IncPerFail*float64(fails)
	if limit := base * r.MaxFactor; p > limit {
		p = limit
	}
	if p > 1 {
		p = 1
	}
	return p
}

// NormalProbs returns the tap probabilities of one normal hone. The last
// entry is the forced tap.
func NormalProbs(base float64, r NormalRules) ([]float64, error) {
	if err := checkProb(base); err != nil {
		return nil, err
	}
	if err := r.normalize(); err != nil {
		return nil, err
	}
	var probs []float64
	energy := 0.0
	for fails := 0; ; fails++ {
		p := r.tapProb(base, fails)
		if p >= 1 || energy >= 1-1e-12 || fails >= maxTaps-1 {
			return append(probs, 1), nil
		}
		probs = append(probs, p)
		energy += p * r.ArtisanRate
	}
}

// Gain is one possible XP outcome of an advanced hone tap.
type Gain struct {
	XP   int
	Prob float64
}

// AdvancedProbs returns the per-tap finishing hazard of an advanced hone
// that completes once accumulated XP reaches goal. The last tap is forced.
func AdvancedProbs(goal int, gains []Gain) ([]float64, error) {
	if goal <= 0 || len(gains) == 0 {
		return nil, ErrScheduleConfig
	}
	minXP := math.MaxInt
	var total float64
	for _, g := range gains {
		if g.XP <= 0 {
			return nil, ErrScheduleConfig
		}
		if err := checkProb(g.Prob); err != nil {
			return nil, err
		}
		if g.Prob > 0 && g.XP < minXP {
			minXP = g.XP
		}
		total += g.Prob
	}
	if math.Abs(total-1) > 1e-9 || minXP == math.MaxInt {
		return nil, ErrScheduleConfig
	}
	taps := (goal + minXP - 1) / minXP
	if taps > maxTaps {
		return nil, ErrScheduleConfig
	}

	// alive[x] is P(xp == x and not finished) before the current tap.
	alive := make([]float64, goal)
	alive[0] = 1
	probs := make([]float64, 0, taps)
	for k := 0; k < taps; k++ {
		mass := 0.0
		for _, a := range alive {
			mass += a
		}
		if k == taps-1 || mass <= 0 {
			probs = append(probs, 1)
			break
		}
		next := make([]float64, goal)
		finish := 0.0
		for x, a := range alive {
			if a == 0 {
				continue
			}
			for _, g := range gains {
				if x+g.XP >= goal {
					finish += a * g.Prob
				} else {
					next[x+g.XP] += a * g.Prob
				}
			}
		}
		h := finish / mass
		if h > 1 {
			h = 1
		}
		probs = append(probs, h)
		alive = next
		if h >= 1 {
			break
		}
	}
	return probs, nil
}
