package honing

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/xtding233/honing-forecast/internal/dist"
)

func testTables() Tables {
	var rates Rates
	rates[Red], rates[Blue], rates[Gold] = 0.1, 0.05, 1
	lvl := func(base float64) NormalLevel {
		var armor, weapon, skip Costs
		armor[Blue], armor[Gold] = 200, 100
		weapon[Red], weapon[Gold] = 300, 150
		skip[Gold] = 40
		return NormalLevel{BaseProb: base, Armor: armor, Weapon: weapon, ArmorSkip: skip}
	}
	var tier Costs
	tier[Blue], tier[Gold] = 500, 300
	return Tables{
		Normal: NormalTable{
			Rules:     testRules,
			WeaponRow: 1,
			Levels:    []NormalLevel{lvl(1), lvl(0.3), lvl(0.1)},
		},
		Advanced: AdvancedTable{
			WeaponRow: 1,
			Tiers:     []AdvancedTier{{Goal: 60, Armor: tier, Weapon: tier, JuicePerTap: 3}},
			Strategies: map[string]AdvancedStrategy{
				"No juice":   {Gains: []Gain{{XP: 10, Prob: 0.8}, {XP: 20, Prob: 0.2}}},
				"Full juice": {Gains: []Gain{{XP: 10, Prob: 0.5}, {XP: 20, Prob: 0.5}}, Juice: true},
			},
		},
		Rates: rates,
	}
}

func TestProblemFromTicks(t *testing.T) {
	tb := testTables()
	p, err := tb.Problem(
		[][]bool{{false, true, true}, {false, false, true}},
		[][]bool{{true}, {true}},
		"Full juice",
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Upgrades) != 5 {
		t.Fatalf("got %d upgrades, want 5", len(p.Upgrades))
	}
	if p.Upgrades[0].Key() == p.Upgrades[1].Key() {
		t.Fatalf("different levels must not share a key")
	}
	if !p.Upgrades[2].Weapon || p.Upgrades[2].Taps[0].Cost[Red] != 300 {
		t.Fatalf("row 1 should be the weapon: %+v", p.Upgrades[2])
	}
	adv := p.Upgrades[3]
	if adv.Family != Advanced || adv.Taps[0].Cost[BlueJuice] != 3 {
		t.Fatalf("juiced armor tap should consume blue juice: %+v", adv.Taps[0].Cost)
	}
	if p.Upgrades[4].Taps[0].Cost[RedJuice] != 3 {
		t.Fatalf("juiced weapon tap should consume red juice")
	}
	if got := p.Upgrades[0].Taps[0].SkipCost[Gold]; got != 40 {
		t.Fatalf("armor skip cost gold=%d, want 40", got)
	}
	if got := p.Upgrades[2].Taps[0].SkipCost; got != p.Upgrades[2].Taps[0].Cost {
		t.Fatalf("missing weapon skip cost should default to the tap cost")
	}
}

func TestProblemShapeErrors(t *testing.T) {
	tb := testTables()
	cases := []struct {
		name   string
		normal [][]bool
		adv    [][]bool
		strat  string
	}{
		{"short row", [][]bool{{true}}, nil, "No juice"},
		{"long adv row", nil, [][]bool{{true, false}}, "No juice"},
		{"too many rows", make([][]bool, MaxPieces+1), nil, "No juice"},
		{"unknown strategy", nil, [][]bool{{true}}, "Half juice"},
	}
	for _, tc := range cases {
		if _, err := tb.Problem(tc.normal, tc.adv, tc.strat); !errors.Is(err, ErrInputShape) {
			t.Errorf("%s: err=%v, want ErrInputShape", tc.name, err)
		}
	}
	if p, err := tb.Problem([][]bool{{false, false, false}}, [][]bool{{false}}, ""); err != nil || len(p.Upgrades) != 0 {
		t.Errorf("all-false ticks should give an empty problem; err=%v", err)
	}
}

func TestEffectiveBudget(t *testing.T) {
	tb := testTables()
	p, err := tb.Problem([][]bool{{false, false, true}}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	need := p.MaxNeed()
	full := p.EffectiveBudget(need)
	d, err := dist.Build(p.Upgrades[0].Schedule(p.Rates), 0)
	if err != nil {
		t.Fatal(err)
	}
	if full < d.Max() {
		t.Fatalf("covering budget %d below worst case %d", full, d.Max())
	}
	var half Costs
	for r := range need {
		half[r] = need[r] / 2
	}
	if got := p.EffectiveBudget(half); got >= full || got <= 0 {
		t.Fatalf("half budget projected to %d (full %d)", got, full)
	}
	var lavish Costs
	for r := range lavish {
		lavish[r] = 4294967295
	}
	if p.EffectiveBudget(lavish) != full {
		t.Fatalf("budget beyond need must not add value")
	}
}

func TestMonteCarloMatchesDistribution(t *testing.T) {
	tb := testTables()
	p, err := tb.Problem([][]bool{{false, false, true}}, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	u := p.Upgrades[0]
	const skip = 3
	d, err := dist.Build(u.Schedule(p.Rates), skip)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := RunMonteCarlo(p, []int{skip}, 20000, NewSeededRNG(3))
	if err != nil {
		t.Fatal(err)
	}
	// scalar cost per tap: 200*0.05 + 100 = 110, skip tap 40.
	mean := stats[Blue].Mean*0.05 + stats[Gold].Mean
	if rel := math.Abs(mean-d.Mean()) / d.Mean(); rel > 0.02 {
		t.Fatalf("simulated mean %v vs exact %v", mean, d.Mean())
	}
	if stats[Gold].P50 > stats[Gold].P90 || stats[Gold].P90 > stats[Gold].P99 {
		t.Fatalf("percentiles out of order: %+v", stats[Gold])
	}
	if _, err := RunMonteCarlo(p, nil, 10, NewSeededRNG(1)); err == nil {
		t.Fatal("skip length mismatch must error")
	}
}
