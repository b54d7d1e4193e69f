// Package state holds annealer search states and the distributions they are
// built from.
package state

import (
	"github.com/pkg/errors"

	"github.com/xtding233/honing-forecast/internal/dist"
	"github.com/xtding233/honing-forecast/internal/honing"
)

// Cache holds every per-upgrade distribution for every skip count. It is
// built once per problem and never mutated, so solves may share it.
type Cache struct {
	kind   []int          // upgrade -> kind
	dists  [][]*dist.Dist // kind -> skip -> distribution
	groups [][]int        // kind -> upgrades
	keys   []string
}

// NewCache builds the distributions of p. Upgrades with equal keys share one
// set of distributions.
func NewCache(p honing.Problem) (*Cache, error) {
	c := &Cache{kind: make([]int, len(p.Upgrades))}
	index := make(map[string]int)
	for i, u := range p.Upgrades {
		k, ok := index[u.Key()]
		if !ok {
			k = len(c.dists)
			index[u.Key()] = k
			ds, err := buildAll(u.Schedule(p.Rates))
			if err != nil {
				return nil, errors.Wrapf(honing.ErrInternal, "upgrade %s: %v", u.Key(), err)
			}
			c.dists = append(c.dists, ds)
			c.groups = append(c.groups, nil)
			c.keys = append(c.keys, u.Key())
		}
		c.kind[i] = k
		c.groups[k] = append(c.groups[k], i)
	}
	return c, nil
}

func buildAll(s dist.Schedule) ([]*dist.Dist, error) {
	ds := make([]*dist.Dist, s.Pity()+1)
	for skip := range ds {
		d, err := dist.Build(s, skip)
		if err != nil {
			return nil, err
		}
		ds[skip] = d
	}
	return ds, nil
}

// Len is the number of upgrades.
func (c *Cache) Len() int { return len(c.kind) }

// MaxSkip is the pity of upgrade i.
func (c *Cache) MaxSkip(i int) int { return len(c.dists[c.kind[i]]) - 1 }

// Dist returns the distribution of upgrade i under skip.
func (c *Cache) Dist(i, skip int) *dist.Dist { return c.dists[c.kind[i]][skip] }

// Kind returns the index shared by upgrades with identical schedules.
func (c *Cache) Kind(i int) int { return c.kind[i] }

// Key returns the upgrade key of kind k.
func (c *Cache) Key(k int) string { return c.keys[k] }

// Twins returns the groups of two or more identical upgrades, the only
// candidates for self-crossover.
func (c *Cache) Twins() [][]int {
	var out [][]int
	for _, g := range c.groups {
		if len(g) > 1 {
			out = append(out, g)
		}
	}
	return out
}
