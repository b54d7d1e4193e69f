package honing

import (
	"github.com/pkg/errors"
)

// MaxPieces bounds the rows of either tick matrix.
const MaxPieces = 6

// NormalLevel is one row of the normal hone table.
type NormalLevel struct {
	BaseProb   float64
	Armor      Costs // per tap on an armor piece
	Weapon     Costs // per tap on the weapon
	ArmorSkip  Costs // per protected tap; zero means same as Armor
	WeaponSkip Costs
}

// NormalTable holds every normal hone level, indexed by tick column.
type NormalTable struct {
	Rules     NormalRules
	WeaponRow int
	Levels    []NormalLevel
}

// AdvancedTier is one column of the advanced hone table.
type AdvancedTier struct {
	Goal        int
	Armor       Costs
	Weapon      Costs
	JuicePerTap int64
}

// AdvancedStrategy selects the XP gain table and whether juice is consumed.
type AdvancedStrategy struct {
	Gains []Gain
	Juice bool
}

// AdvancedTable holds the advanced hone tiers and strategies.
type AdvancedTable struct {
	WeaponRow  int
	Tiers      []AdvancedTier
	Strategies map[string]AdvancedStrategy
}

// Tables are the game rules: every probability and cost is data.
type Tables struct {
	Normal   NormalTable
	Advanced AdvancedTable
	Rates    Rates
}

// Problem is the multiset of upgrades selected by a payload.
type Problem struct {
	Upgrades []Upgrade
	Rates    Rates
}

// MaxNeed sums each upgrade's worst-case consumption.
func (p Problem) MaxNeed() Costs {
	var need Costs
	for _, u := range p.Upgrades {
		need = need.Add(u.MaxNeed())
	}
	return need
}

// EffectiveBudget reduces a budget vector to gold equivalents. A budget that
// covers every resource's worst case maps to a value no strategy can exceed.
func (p Problem) EffectiveBudget(b Costs) int64 {
	need := p.MaxNeed()
	if b.Covers(need) {
		var worst int64
		for _, u := range p.Upgrades {
			var top int64
			s := u.Schedule(p.Rates)
			for j := range s.Costs {
				top += max(s.Costs[j], s.SkipCosts[j])
			}
			worst += top
		}
		return max(worst, p.Rates.Budget(b, need))
	}
	return p.Rates.Budget(b, need)
}

func shapeErr(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInputShape, format, args...)
}

// Problem builds the upgrades selected by the two tick matrices.
func (t Tables) Problem(normalTicks, advTicks [][]bool, strategy string) (Problem, error) {
	prob := Problem{Rates: t.Rates}
	if len(normalTicks) > MaxPieces {
		return Problem{}, shapeErr("%d normal rows, max %d", len(normalTicks), MaxPieces)
	}
	if len(advTicks) > MaxPieces {
		return Problem{}, shapeErr("%d advanced rows, max %d", len(advTicks), MaxPieces)
	}

	for row, ticks := range normalTicks {
		if len(ticks) != len(t.Normal.Levels) {
			return Problem{}, shapeErr("normal row %d has %d columns, want %d", row, len(ticks), len(t.Normal.Levels))
		}
		for col, on := range ticks {
			if !on {
				continue
			}
			u, err := t.normalUpgrade(row, col)
			if err != nil {
				return Problem{}, err
			}
			prob.Upgrades = append(prob.Upgrades, u)
		}
	}

	var strat AdvancedStrategy
	if hasTick(advTicks) {
		var ok bool
		strat, ok = t.Advanced.Strategies[strategy]
		if !ok {
			return Problem{}, shapeErr("unknown advanced hone strategy %q", strategy)
		}
	}
	for row, ticks := range advTicks {
		if len(ticks) != len(t.Advanced.Tiers) {
			return Problem{}, shapeErr("advanced row %d has %d columns, want %d", row, len(ticks), len(t.Advanced.Tiers))
		}
		for col, on := range ticks {
			if !on {
				continue
			}
			u, err := t.advancedUpgrade(row, col, strategy, strat)
			if err != nil {
				return Problem{}, err
			}
			prob.Upgrades = append(prob.Upgrades, u)
		}
	}
	return prob, nil
}

func hasTick(m [][]bool) bool {
	for _, row := range m {
		for _, on := range row {
			if on {
				return true
			}
		}
	}
	return false
}

func (t Tables) normalUpgrade(row, col int) (Upgrade, error) {
	lvl := t.Normal.Levels[col]
	probs, err := NormalProbs(lvl.BaseProb, t.Normal.Rules)
	if err != nil {
		return Upgrade{}, errors.Wrapf(err, "normal level %d", col+1)
	}
	weapon := row == t.Normal.WeaponRow
	cost, skip := lvl.Armor, lvl.ArmorSkip
	if weapon {
		cost, skip = lvl.Weapon, lvl.WeaponSkip
	}
	if skip.IsZero() {
		skip = cost
	}
	u := Upgrade{Family: Normal, Piece: row, Level: col + 1, Weapon: weapon, Taps: make([]Tap, len(probs))}
	for j, p := range probs {
		u.Taps[j] = Tap{Prob: p, Cost: cost, SkipCost: skip}
	}
	return u, nil
}

func (t Tables) advancedUpgrade(row, col int, name string, strat AdvancedStrategy) (Upgrade, error) {
	tier := t.Advanced.Tiers[col]
	probs, err := AdvancedProbs(tier.Goal, strat.Gains)
	if err != nil {
		return Upgrade{}, errors.Wrapf(err, "advanced tier %d", col+1)
	}
	weapon := row == t.Advanced.WeaponRow
	cost := tier.Armor
	if weapon {
		cost = tier.Weapon
	}
	if strat.Juice {
		if weapon {
			cost[RedJuice] += tier.JuicePerTap
		} else {
			cost[BlueJuice] += tier.JuicePerTap
		}
	}
	u := Upgrade{Family: Advanced, Piece: row, Level: col + 1, Weapon: weapon, Kind: name, Taps: make([]Tap, len(probs))}
	for j, p := range probs {
		u.Taps[j] = Tap{Prob: p, Cost: cost, SkipCost: cost}
	}
	return u, nil
}
