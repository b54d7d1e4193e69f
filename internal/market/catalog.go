// Package market prices resources in gold and plans purchases.
package market

import (
	"github.com/xtding233/honing-forecast/internal/honing"
)

// Bundle is a purchasable stack of one resource.
type Bundle struct {
	ID       string          // e.g. "blue-100"
	Name     string          // display name
	Resource honing.Resource // what the bundle grants
	Amount   int64           // units granted per purchase
	Price    int64           // gold per purchase
}

// Catalog is the set of bundles on sale.
type Catalog struct {
	Bundles []Bundle
}

// Plan summarizes the purchases covering a deficit.
type Plan struct {
	Purchases []Purchase   `json:"purchases"`
	TotalGold int64        `json:"total_gold"`
	Deficit   honing.Costs `json:"deficit"`
	// resources short of budget that no bundle sells
	Unbuyable []string `json:"unbuyable,omitempty"`
}

// Purchase is one line item in the plan.
type Purchase struct {
	BundleID   string `json:"bundle_id"`
	Name       string `json:"name"`
	Resource   string `json:"resource"`
	Qty        int64  `json:"qty"`
	UnitPrice  int64  `json:"unit_price"`
	UnitAmount int64  `json:"unit_amount"`
	Subtotal   int64  `json:"subtotal"`
}

// Rates returns gold per unit of every resource at the cheapest bundle. Gold
// is worth 1; resources nobody sells are worth 0.
func (c Catalog) Rates() honing.Rates {
	var r honing.Rates
	for _, b := range c.Bundles {
		if b.Amount <= 0 || b.Price < 0 {
			continue
		}
		unit := float64(b.Price) / float64(b.Amount)
		if r[b.Resource] == 0 || unit < r[b.Resource] {
			r[b.Resource] = unit
		}
	}
	r[honing.Gold] = 1
	return r
}

func (c Catalog) forResource(res honing.Resource) []Bundle {
	var out []Bundle
	for _, b := range c.Bundles {
		if b.Resource == res && b.Amount > 0 && b.Price >= 0 {
			out = append(out, b)
		}
	}
	return out
}
