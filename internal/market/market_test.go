package market

import (
	"testing"

	"github.com/xtding233/honing-forecast/internal/honing"
)

func testCatalog() Catalog {
	return Catalog{Bundles: []Bundle{
		{ID: "blue-10", Name: "Blue x10", Resource: honing.Blue, Amount: 10, Price: 12},
		{ID: "blue-100", Name: "Blue x100", Resource: honing.Blue, Amount: 100, Price: 100},
		{ID: "leaps-1", Name: "Leap", Resource: honing.Leaps, Amount: 1, Price: 30},
	}}
}

func TestRatesTakeCheapestBundle(t *testing.T) {
	r := testCatalog().Rates()
	if r[honing.Blue] != 1 {
		t.Fatalf("blue rate %v, want 1 (from the 100 bundle)", r[honing.Blue])
	}
	if r[honing.Leaps] != 30 || r[honing.Gold] != 1 {
		t.Fatalf("rates %v", r)
	}
	if r[honing.Shards] != 0 {
		t.Fatalf("unsold resource priced at %v", r[honing.Shards])
	}
}

func TestMinCostAtLeast(t *testing.T) {
	blues := testCatalog().forResource(honing.Blue)
	cases := []struct {
		target    int64
		wantGold  int64
		wantUnits int64
	}{
		{10, 12, 10},
		{95, 100, 100},  // one big bundle beats nine small ones (108)
		{110, 112, 110}, // 100 + 10
		{185, 200, 200},
	}
	for _, tc := range cases {
		ps := MinCostAtLeast(blues, tc.target)
		var gold, units int64
		for _, p := range ps {
			gold += p.Subtotal
			units += p.Qty * p.UnitAmount
		}
		if gold != tc.wantGold || units != tc.wantUnits {
			t.Errorf("target %d: %d gold for %d units, want %d for %d", tc.target, gold, units, tc.wantGold, tc.wantUnits)
		}
	}
	if MinCostAtLeast(blues, 0) != nil || MinCostAtLeast(nil, 5) != nil {
		t.Fatal("nothing to buy should give no purchases")
	}
}

func TestMinCostAtLeastLargeTarget(t *testing.T) {
	blues := testCatalog().forResource(honing.Blue)
	const target = 50_000_005
	var gold, units int64
	for _, p := range MinCostAtLeast(blues, target) {
		gold += p.Subtotal
		units += p.Qty * p.UnitAmount
	}
	if units < target {
		t.Fatalf("bought %d units, need %d", units, target)
	}
	if gold > target+100 {
		t.Fatalf("paid %d gold for %d units", gold, units)
	}
}

func TestPlanPurchase(t *testing.T) {
	var owned, need honing.Costs
	owned[honing.Blue], need[honing.Blue] = 50, 140
	need[honing.Leaps] = 2
	owned[honing.Gold], need[honing.Gold] = 100, 250
	need[honing.Shards] = 7
	plan := testCatalog().PlanPurchase(owned, need)
	if plan.Deficit[honing.Blue] != 90 || plan.Deficit[honing.Gold] != 150 {
		t.Fatalf("deficit %v", plan.Deficit)
	}
	// 90 blue -> 100 gold, 2 leaps -> 60, 150 gold short
	if plan.TotalGold != 310 {
		t.Fatalf("total %d, want 310: %+v", plan.TotalGold, plan.Purchases)
	}
	if len(plan.Unbuyable) != 1 || plan.Unbuyable[0] != "shards" {
		t.Fatalf("unbuyable %v", plan.Unbuyable)
	}
}
