package market

import (
	"sort"

	"github.com/xtding233/honing-forecast/internal/dist"
	"github.com/xtding233/honing-forecast/internal/honing"
)

// dpLimit bounds the DP table; larger targets are first filled greedily with
// the densest bundle.
const dpLimit = 1 << 20

// MinCostAtLeast finds the cheapest combination of bundles granting at least
// target units. Quantities are unbounded. It returns nil when nothing can be
// bought.
func MinCostAtLeast(bundles []Bundle, target int64) []Purchase {
	if target <= 0 || len(bundles) == 0 {
		return nil
	}

	// work in units of the common divisor of every amount
	var g, maxAmt int64
	best := 0
	for i, b := range bundles {
		g = dist.GCD(g, b.Amount)
		maxAmt = max(maxAmt, b.Amount)
		// densest: lowest price per unit
		if b.Price*bundles[best].Amount < bundles[best].Price*b.Amount {
			best = i
		}
	}
	if g == 0 {
		return nil
	}
	counts := make([]int64, len(bundles))
	units := (target + g - 1) / g
	if units > dpLimit {
		step := bundles[best].Amount / g
		n := (units - dpLimit) / step
		counts[best] += n
		units -= n * step
	}

	limit := units + maxAmt/g
	const inf = int64(^uint64(0) >> 1)
	dp := make([]int64, limit+1) // min gold to reach exactly t units
	pick := make([]int, limit+1)
	prev := make([]int64, limit+1)
	for t := range dp {
		dp[t], pick[t], prev[t] = inf, -1, -1
	}
	dp[0] = 0
	for t := int64(0); t <= limit; t++ {
		if dp[t] == inf {
			continue
		}
		for i, b := range bundles {
			nt := min(t+b.Amount/g, limit)
			if cost := dp[t] + b.Price; cost < dp[nt] {
				dp[nt], pick[nt], prev[nt] = cost, i, t
			}
		}
	}

	bestT := units
	for t := units; t <= limit; t++ {
		if dp[t] < dp[bestT] {
			bestT = t
		}
	}
	for t := bestT; t > 0 && pick[t] != -1; t = prev[t] {
		counts[pick[t]]++
	}

	var out []Purchase
	for i, n := range counts {
		if n == 0 {
			continue
		}
		b := bundles[i]
		out = append(out, Purchase{
			BundleID:   b.ID,
			Name:       b.Name,
			Resource:   b.Resource.String(),
			Qty:        n,
			UnitPrice:  b.Price,
			UnitAmount: b.Amount,
			Subtotal:   n * b.Price,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BundleID < out[j].BundleID })
	return out
}

// PlanPurchase covers need - owned with the cheapest bundles. Missing gold is
// added to the total as is.
func (c Catalog) PlanPurchase(owned, need honing.Costs) Plan {
	plan := Plan{Deficit: need.Sub(owned)}
	for r, short := range plan.Deficit {
		if short == 0 {
			continue
		}
		res := honing.Resource(r)
		if res == honing.Gold {
			plan.TotalGold += short
			continue
		}
		ps := MinCostAtLeast(c.forResource(res), short)
		if ps == nil {
			plan.Unbuyable = append(plan.Unbuyable, res.String())
			continue
		}
		for _, p := range ps {
			plan.TotalGold += p.Subtotal
		}
		plan.Purchases = append(plan.Purchases, ps...)
	}
	return plan
}
