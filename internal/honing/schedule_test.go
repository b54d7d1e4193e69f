package honing

import (
	"math"
	"testing"
)

var testRules = NormalRules{IncPerFail: 0.1, MaxFactor: 2, ArtisanRate: 0.4651}

func TestNormalProbsRamp(t *testing.T) {
	probs, err := NormalProbs(0.03, testRules)
	if err != nil {
		t.Fatal(err)
	}
	if probs[0] != 0.03 {
		t.Fatalf("first tap %v, want base", probs[0])
	}
	if probs[len(probs)-1] != 1 {
		t.Fatalf("last tap must be forced")
	}
	for j := 1; j < len(probs)-1; j++ {
		if probs[j] < probs[j-1] {
			t.Fatalf("tap %d probability decreased", j)
		}
		if probs[j] > 0.06+1e-12 {
			t.Fatalf("tap %d above cap: %v", j, probs[j])
		}
	}
	energy := 0.0
	for _, p := range probs[:len(probs)-1] {
		energy += p * testRules.ArtisanRate
	}
	if energy < 1-1e-9 {
		t.Fatalf("forced tap reached with energy %v", energy)
	}
	if energy-probs[len(probs)-2]*testRules.ArtisanRate >= 1 {
		t.Fatalf("forced tap came one tap late")
	}
}

func TestNormalProbsCertain(t *testing.T) {
	probs, err := NormalProbs(1, testRules)
	if err != nil {
		t.Fatal(err)
	}
	if len(probs) != 1 || probs[0] != 1 {
		t.Fatalf("base 1 must give a single forced tap, got %v", probs)
	}
	if _, err := NormalProbs(0.1, NormalRules{MaxFactor: 2}); err == nil {
		t.Fatal("zero artisan rate must error")
	}
}

func TestAdvancedProbs(t *testing.T) {
	gains := []Gain{{XP: 10, Prob: 0.8}, {XP: 20, Prob: 0.15}, {XP: 40, Prob: 0.05}}
	probs, err := AdvancedProbs(100, gains)
	if err != nil {
		t.Fatal(err)
	}
	if len(probs) != 10 {
		t.Fatalf("got %d taps, want 10", len(probs))
	}
	// after three taps only 40+40+40 and the orderings of 40+40+20 reach 100.
	if probs[0] != 0 || probs[1] != 0 {
		t.Fatalf("cannot finish in fewer than three taps: %v", probs[:3])
	}
	if want := 0.05*0.05*0.05 + 3*0.05*0.05*0.15; math.Abs(probs[2]-want) > 1e-12 {
		t.Fatalf("hazard at tap 3 = %v, want %v", probs[2], want)
	}
	if probs[len(probs)-1] != 1 {
		t.Fatalf("last tap must be forced")
	}
	if _, err := AdvancedProbs(100, []Gain{{XP: 10, Prob: 0.5}}); err == nil {
		t.Fatal("gains not summing to one must error")
	}
}
