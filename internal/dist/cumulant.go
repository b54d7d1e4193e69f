package dist

import "math"

// ExpBound is the largest exponent evaluated directly by MGF.
const ExpBound = 700

// Cumulants holds the cumulant generating function K(t) and its first three
// derivatives at one point.
type Cumulants struct {
	K, K1, K2, K3 float64
}

// Add returns the cumulants of the sum of two independent variables.
func (c Cumulants) Add(o Cumulants) Cumulants {
	return Cumulants{K: c.K + o.K, K1: c.K1 + o.K1, K2: c.K2 + o.K2, K3: c.K3 + o.K3}
}

// CumulantsAt evaluates K and its derivatives for atoms xs with masses ps
// (summing to 1). The exponentials are shifted by the largest t·x so the
// softmax weights never overflow; for small |t·x| the value of K itself uses
// expm1/log1p, which keeps t·x - K(t) accurate near the mean when xs is
// centered.
func CumulantsAt(xs, ps []float64, t float64) Cumulants {
	if len(xs) == 0 {
		return Cumulants{}
	}
	if t == 0 {
		var m float64
		for j, x := range xs {
			m += ps[j] * x
		}
		var m2, m3 float64
		for j, x := range xs {
			d := x - m
			m2 += ps[j] * d * d
			m3 += ps[j] * d * d * d
		}
		return Cumulants{K: 0, K1: m, K2: m2, K3: m3}
	}

	shift := math.Inf(-1)
	small := true
	for _, x := range xs {
		tx := t * x
		if tx > shift {
			shift = tx
		}
		if math.Abs(tx) >= 0.5 {
			small = false
		}
	}

	var s, sx float64
	for j, x := range xs {
		w := ps[j] * math.Exp(t*x-shift)
		s += w
		sx += w * x
	}
	k1 := sx / s

	var s2, s3 float64
	for j, x := range xs {
		w := ps[j] * math.Exp(t*x-shift)
		d := x - k1
		s2 += w * d * d
		s3 += w * d * d * d
	}

	var k float64
	if small {
		var e float64
		for j, x := range xs {
			e += ps[j] * math.Expm1(t*x)
		}
		k = math.Log1p(e)
	} else {
		k = shift + math.Log(s)
	}
	return Cumulants{K: k, K1: k1, K2: s2 / s, K3: s3 / s}
}

// MGF returns E[e^{tX}]. It is +Inf once t·max(X) exceeds the exponent bound.
func (d *Dist) MGF(t float64) float64 {
	if t*float64(d.Max()) > ExpBound {
		return math.Inf(1)
	}
	var m float64
	for i, v := range d.values {
		m += d.probs[i] * math.Exp(t*float64(v))
	}
	return m
}

// CGF returns K(t) = log E[e^{tX}] and its first three derivatives.
// Atoms are centered on the mean before exponentiating.
func (d *Dist) CGF(t float64) Cumulants {
	xs := make([]float64, len(d.values))
	for i, v := range d.values {
		xs[i] = float64(v) - d.mean
	}
	c := CumulantsAt(xs, d.probs, t)
	c.K += t * d.mean
	c.K1 += d.mean
	return c
}
