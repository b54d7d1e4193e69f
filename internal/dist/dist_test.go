package dist

import (
	"math"
	"testing"
)

func geometric(p float64, pity int, cost int64) Schedule {
	s := Schedule{Probs: make([]float64, pity+1), Costs: make([]int64, pity+1)}
	for j := range s.Probs {
		s.Probs[j] = p
		s.Costs[j] = cost
	}
	s.Probs[pity] = 1
	return s
}

func TestBuildNormalized(t *testing.T) {
	for _, p := range []float64{0, 0.003, 0.05, 0.3, 0.99} {
		s := geometric(p, 60, 17)
		for skip := 0; skip <= s.Pity(); skip++ {
			d, err := Build(s, skip)
			if err != nil {
				t.Fatalf("p=%v skip=%d: %v", p, skip, err)
			}
			if diff := math.Abs(d.Sum() - 1); diff > NormTolerance {
				t.Fatalf("p=%v skip=%d: mass off by %g", p, skip, diff)
			}
			if d.Len() > s.Pity()-skip+1 {
				t.Fatalf("p=%v skip=%d: %d atoms, want <= %d", p, skip, d.Len(), s.Pity()-skip+1)
			}
		}
	}
}

func TestBuildAtoms(t *testing.T) {
	s := Schedule{
		Probs: []float64{0.5, 0.5, 1},
		Costs: []int64{10, 10, 10},
	}
	d, err := Build(s, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := map[int64]float64{10: 0.5, 20: 0.25, 30: 0.25}
	for v, p := range want {
		if got := d.PMF(v); math.Abs(got-p) > 1e-15 {
			t.Errorf("PMF(%d)=%v, want %v", v, got, p)
		}
	}
	if d.PMF(15) != 0 {
		t.Errorf("PMF(15) should be 0")
	}
	if d.PityProb() != 0.25 {
		t.Errorf("PityProb=%v, want 0.25", d.PityProb())
	}
	if math.Abs(d.Mean()-17.5) > 1e-12 {
		t.Errorf("Mean=%v, want 17.5", d.Mean())
	}

	d, err = Build(s, 1)
	if err != nil {
		t.Fatal(err)
	}
	if d.Min() != 20 || d.Max() != 30 || d.PMF(20) != 0.5 {
		t.Errorf("skip 1: support %v probs %v", d.Support(), d.Probs())
	}
}

func TestSkipCostFloorNonDecreasing(t *testing.T) {
	s := geometric(0.1, 20, 100)
	s.SkipCosts = make([]int64, len(s.Costs))
	for j := range s.SkipCosts {
		s.SkipCosts[j] = 40
	}
	prev := int64(-1)
	for skip := 0; skip <= s.Pity(); skip++ {
		d, err := Build(s, skip)
		if err != nil {
			t.Fatal(err)
		}
		if d.Min() < prev {
			t.Fatalf("skip %d: floor %d dropped below %d", skip, d.Min(), prev)
		}
		prev = d.Min()
	}
}

func TestBuildRejects(t *testing.T) {
	s := geometric(0.2, 5, 1)
	if _, err := Build(s, 6); err == nil {
		t.Fatal("skip past pity must error")
	}
	if _, err := Build(s, -1); err == nil {
		t.Fatal("negative skip must error")
	}
	s.Probs[2] = 1.5
	if _, err := Build(s, 0); err == nil {
		t.Fatal("p>1 must error")
	}
	if _, err := Build(Schedule{}, 0); err == nil {
		t.Fatal("empty schedule must error")
	}
}

func TestSingleForcedTap(t *testing.T) {
	d, err := Build(Schedule{Probs: []float64{1}, Costs: []int64{100}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 1 || d.Min() != 100 || d.CDF(99) != 0 || d.CDF(100) != 1 {
		t.Fatalf("unexpected point mass: %v %v", d.Support(), d.Probs())
	}
	if d.Variance() != 0 || d.Span() != 0 {
		t.Fatalf("point mass has variance %v span %d", d.Variance(), d.Span())
	}
}

func TestKS(t *testing.T) {
	s := geometric(0.3, 8, 5)
	a, _ := Build(s, 0)
	b, _ := Build(s, 0)
	if KS(a, b) != 0 {
		t.Fatalf("identical dists must have KS 0")
	}
	c, _ := Build(s, 1)
	// a puts 0.3 on 5 while c starts at 10.
	if got := KS(a, c); math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("KS=%v, want 0.3", got)
	}
	zero, _ := Build(geometric(0, 8, 5), 0)
	zeroSkip, _ := Build(geometric(0, 8, 5), 3)
	if KS(zero, zeroSkip) != 0 {
		t.Fatalf("skipping zero-probability taps must not move the distribution")
	}
}

func TestCGFDerivatives(t *testing.T) {
	d, err := Build(geometric(0.15, 30, 3), 2)
	if err != nil {
		t.Fatal(err)
	}
	c0 := d.CGF(0)
	if math.Abs(c0.K1-d.Mean()) > 1e-9 || math.Abs(c0.K2-d.Variance()) > 1e-9 {
		t.Fatalf("K'(0)=%v K''(0)=%v, want %v %v", c0.K1, c0.K2, d.Mean(), d.Variance())
	}
	for _, tt := range []float64{-0.3, -0.01, 0.002, 0.2} {
		h := 1e-5
		c := d.CGF(tt)
		lo, hi := d.CGF(tt-h), d.CGF(tt+h)
		if num := (hi.K - lo.K) / (2 * h); math.Abs(num-c.K1) > 1e-4*math.Max(1, math.Abs(c.K1)) {
			t.Errorf("t=%v: K' %v vs numeric %v", tt, c.K1, num)
		}
		if num := (hi.K1 - lo.K1) / (2 * h); math.Abs(num-c.K2) > 1e-4*math.Max(1, c.K2) {
			t.Errorf("t=%v: K'' %v vs numeric %v", tt, c.K2, num)
		}
		if c.K2 < 0 {
			t.Errorf("t=%v: K'' negative", tt)
		}
		if mgf := d.MGF(tt); math.Abs(math.Log(mgf)-c.K) > 1e-9*math.Max(1, math.Abs(c.K)) {
			t.Errorf("t=%v: log MGF %v vs K %v", tt, math.Log(mgf), c.K)
		}
	}
}

func TestCumulantsLargeT(t *testing.T) {
	xs := []float64{-2, 0, 1, 4}
	ps := []float64{0.1, 0.4, 0.3, 0.2}
	c := CumulantsAt(xs, ps, 900)
	if math.IsNaN(c.K) || math.IsInf(c.K, 0) || math.IsNaN(c.K1) {
		t.Fatalf("non-finite cumulants at large t: %+v", c)
	}
	if math.Abs(c.K1-4) > 1e-9 {
		t.Fatalf("K' should approach the top atom, got %v", c.K1)
	}
}
