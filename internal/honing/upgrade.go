package honing

import (
	"fmt"

	"github.com/xtding233/honing-forecast/internal/dist"
)

// Family distinguishes the two honing mechanics.
type Family int

const (
	Normal Family = iota
	Advanced
)

func (f Family) String() string {
	if f == Advanced {
		return "advanced"
	}
	return "normal"
}

// Tap is one attempt: success probability, what it consumes, and what it
// consumes when deliberately skipped as a guaranteed failure.
type Tap struct {
	Prob     float64
	Cost     Costs
	SkipCost Costs
}

// Upgrade is one item level being honed.
type Upgrade struct {
	Family Family
	Piece  int  // row in the tick matrix
	Level  int  // column in the tick matrix
	Weapon bool // weapon rows consume red stones and red juice
	Kind   string
	Taps   []Tap
}

// Key identifies upgrades with identical tap schedules. Only upgrades with
// equal keys take part in self-crossover and share cached distributions.
func (u Upgrade) Key() string {
	part := "armor"
	if u.Weapon {
		part = "weapon"
	}
	return fmt.Sprintf("%s/%s/%d/%s", u.Family, part, u.Level, u.Kind)
}

// Pity is the number of failures allowed before the forced tap.
func (u Upgrade) Pity() int { return len(u.Taps) - 1 }

// Schedule projects the taps onto scalar gold-equivalent costs.
func (u Upgrade) Schedule(r Rates) dist.Schedule {
	s := dist.Schedule{
		Probs:     make([]float64, len(u.Taps)),
		Costs:     make([]int64, len(u.Taps)),
		SkipCosts: make([]int64, len(u.Taps)),
	}
	for j, t := range u.Taps {
		s.Probs[j] = t.Prob
		s.Costs[j] = r.Scalar(t.Cost)
		s.SkipCosts[j] = r.Scalar(t.SkipCost)
	}
	return s
}

// PityCost is the resource vector consumed when every random tap fails.
func (u Upgrade) PityCost(skip int) Costs {
	var c Costs
	for j, t := range u.Taps {
		if j < skip {
			c = c.Add(t.SkipCost)
		} else {
			c = c.Add(t.Cost)
		}
	}
	return c
}

// MaxNeed is the componentwise largest consumption over every skip count.
func (u Upgrade) MaxNeed() Costs {
	var need Costs
	for s := 0; s <= u.Pity(); s++ {
		need = need.Max(u.PityCost(s))
	}
	return need
}
