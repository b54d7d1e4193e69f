package anneal

import (
	"math"
	"testing"
)

func TestScalerStableAtTarget(t *testing.T) {
	sc := NewScaler(0.37, 100, 0.1, func(float64) float64 { return 0.5 })
	for i := 0; i < 100000; i++ {
		sc.Observe(i%2 == 0, float64(i)/100000)
	}
	if sc.Scale() != 0.37 {
		t.Fatalf("scale drifted to %v", sc.Scale())
	}
}

func TestScalerDirection(t *testing.T) {
	half := func(float64) float64 { return 0.5 }
	hot := NewScaler(1, 10, 0.1, half)
	cold := NewScaler(1, 10, 0.1, half)
	for i := 0; i < 10; i++ {
		hot.Observe(true, 0)
		cold.Observe(false, 0)
	}
	if hot.Scale() >= 1 {
		t.Fatalf("accepting everything should cool: %v", hot.Scale())
	}
	if cold.Scale() <= 1 {
		t.Fatalf("rejecting everything should heat: %v", cold.Scale())
	}
}

func TestScalerStaysFinite(t *testing.T) {
	sc := NewScaler(1, 1, 5, func(float64) float64 { return math.NaN() })
	for i := 0; i < 10000; i++ {
		sc.Observe(false, 1)
		if s := sc.Scale(); !(s > 0) || math.IsInf(s, 0) {
			t.Fatalf("scale %v after %d batches", s, i)
		}
	}
	if s := NewScaler(-1, 0, 0, nil).Scale(); s != 1 {
		t.Fatalf("invalid initial scale kept: %v", s)
	}
}

func TestDefaultTarget(t *testing.T) {
	if got := DefaultTarget(0); math.Abs(got-0.8) > 1e-12 {
		t.Fatalf("start %v", got)
	}
	if got := DefaultTarget(1); math.Abs(got-0.001) > 1e-12 {
		t.Fatalf("end %v", got)
	}
	if DefaultTarget(0.5) >= DefaultTarget(0.4) {
		t.Fatal("target must decay")
	}
}
