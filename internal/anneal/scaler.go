package anneal

import "math"

// TargetFunc maps progress in [0,1] to the wanted uphill acceptance rate.
type TargetFunc func(progress float64) float64

// ExpDecay returns a target that decays exponentially from start to end.
func ExpDecay(start, end float64) TargetFunc {
	return func(progress float64) float64 {
		return start * math.Pow(end/start, progress)
	}
}

// DefaultTarget decays from 0.80 to 0.001.
var DefaultTarget = ExpDecay(0.8, 0.001)

const (
	minScale = 1e-12
	maxScale = 1e12
)

// Scaler steers the acceptance temperature towards a target uphill
// acceptance rate. Only uphill moves are observed.
type Scaler struct {
	scale    float64
	uphill   int
	accepted int
	batch    int
	rate     float64
	target   TargetFunc
}

// NewScaler returns a scaler starting at scale. Zero batch, rate or a nil
// target take the defaults (100, 0.1, DefaultTarget).
func NewScaler(scale float64, batch int, rate float64, target TargetFunc) *Scaler {
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}
	if batch <= 0 {
		batch = 100
	}
	if rate <= 0 {
		rate = 0.1
	}
	if target == nil {
		target = DefaultTarget
	}
	return &Scaler{scale: scale, batch: batch, rate: rate, target: target}
}

// Scale is the current multiplier on the temperature.
func (s *Scaler) Scale() float64 { return s.scale }

// Observe records one uphill move and recalibrates once a batch is full.
func (s *Scaler) Observe(accepted bool, progress float64) {
	s.uphill++
	if accepted {
		s.accepted++
	}
	if s.uphill < s.batch {
		return
	}
	measured := clampRate(float64(s.accepted) / float64(s.uphill))
	target := clampRate(s.target(progress))
	ratio := math.Log(measured) / math.Log(target)
	next := s.scale * math.Pow(ratio, s.rate)
	if !math.IsNaN(next) && !math.IsInf(next, 0) && next > 0 {
		s.scale = math.Max(minScale, math.Min(next, maxScale))
	}
	s.uphill, s.accepted = 0, 0
}

func clampRate(r float64) float64 {
	if math.IsNaN(r) {
		return 0.5
	}
	return math.Max(0.001, math.Min(r, 0.999))
}
