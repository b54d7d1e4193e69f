package honing

import "math"

// NumResources is the length of every budget and cost vector.
const NumResources = 10

// Resource indexes a cost vector.
type Resource int

const (
	Red Resource = iota
	Blue
	Leaps
	Shards
	Oreha
	Gold
	Silver
	RedJuice
	BlueJuice
	SpecialLeaps
)

var resourceNames = [NumResources]string{
	"red", "blue", "leaps", "shards", "oreha",
	"gold", "silver", "red_juice", "blue_juice", "special_leaps",
}

func (r Resource) String() string {
	if r < 0 || int(r) >= NumResources {
		return "unknown"
	}
	return resourceNames[r]
}

// ParseResource maps a config key to a Resource.
func ParseResource(name string) (Resource, bool) {
	for i, n := range resourceNames {
		if n == name {
			return Resource(i), true
		}
	}
	return 0, false
}

// ResourceNames lists the resource keys in vector order.
func ResourceNames() []string {
	return append([]string(nil), resourceNames[:]...)
}

// Costs is an amount per resource.
type Costs [NumResources]int64

func (c Costs) Add(o Costs) Costs {
	for i := range c {
		c[i] += o[i]
	}
	return c
}

// Sub returns c - o clamped at zero.
func (c Costs) Sub(o Costs) Costs {
	for i := range c {
		c[i] -= o[i]
		if c[i] < 0 {
			c[i] = 0
		}
	}
	return c
}

// Covers reports whether c >= o componentwise.
func (c Costs) Covers(o Costs) bool {
	for i := range c {
		if c[i] < o[i] {
			return false
		}
	}
	return true
}

// Max returns the componentwise maximum.
func (c Costs) Max(o Costs) Costs {
	for i := range c {
		if o[i] > c[i] {
			c[i] = o[i]
		}
	}
	return c
}

// Scale multiplies every component by f, rounding up.
func (c Costs) Scale(f float64) Costs {
	for i := range c {
		c[i] = int64(math.Ceil(float64(c[i]) * f))
	}
	return c
}

func (c Costs) IsZero() bool {
	return c == Costs{}
}

// Rates converts resources into gold equivalents.
type Rates [NumResources]float64

// Scalar projects a cost vector to whole gold-equivalent units.
func (r Rates) Scalar(c Costs) int64 {
	var s float64
	for i := range c {
		s += r[i] * float64(c[i])
	}
	return int64(math.Round(s))
}

// Budget projects a budget vector to a scalar. Each resource contributes at
// most what the upgrades can ever consume of it.
func (r Rates) Budget(b, need Costs) int64 {
	var s float64
	for i := range b {
		v := b[i]
		if v > need[i] {
			v = need[i]
		}
		if v < 0 {
			v = 0
		}
		s += r[i] * float64(v)
	}
	return int64(math.Floor(s + 1e-9))
}
