package anneal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/xtding233/honing-forecast/internal/honing"
	"github.com/xtding233/honing-forecast/internal/state"
	"github.com/xtding233/honing-forecast/internal/tail"
)

func upgrade(level int, p float64, pity int, gold, skipGold int64) honing.Upgrade {
	u := honing.Upgrade{Level: level, Taps: make([]honing.Tap, pity+1)}
	for j := range u.Taps {
		u.Taps[j].Prob = p
		u.Taps[j].Cost[honing.Gold] = gold
		u.Taps[j].SkipCost[honing.Gold] = skipGold
	}
	u.Taps[pity].Prob = 1
	return u
}

func bundle(t *testing.T, us ...honing.Upgrade) *state.Bundle {
	t.Helper()
	var rates honing.Rates
	rates[honing.Gold] = 1
	c, err := state.NewCache(honing.Problem{Upgrades: us, Rates: rates})
	if err != nil {
		t.Fatal(err)
	}
	b, err := state.New(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func mixedBundle(t *testing.T) *state.Bundle {
	return bundle(t,
		upgrade(1, 0.1, 12, 30, 12),
		upgrade(1, 0.1, 12, 30, 12),
		upgrade(1, 0.1, 12, 30, 12),
		upgrade(2, 0.05, 20, 45, 20),
		upgrade(2, 0.05, 20, 45, 20),
		upgrade(3, 0.3, 5, 80, 80),
	)
}

func TestTwinsConvergeWithCrossover(t *testing.T) {
	// skipping is cheap, so only the full skip on both fits the budget
	equal := 0
	for seed := uint64(1); seed <= 10; seed++ {
		init := bundle(t, upgrade(1, 0.1, 5, 10, 1), upgrade(1, 0.1, 5, 10, 1))
		cfg := DefaultConfig()
		cfg.MaxIter = 2000
		cfg.MinIter = 0
		cfg.CrossoverProb = 0.5
		cfg.Seed = seed
		res, err := Adaptive{}.Solve(context.Background(), init, ChanceObjective{Budget: 30, Target: 1}, tail.New(nil, 0), cfg)
		if err != nil {
			t.Fatal(err)
		}
		if res.Best.Skip(0) == res.Best.Skip(1) {
			equal++
		}
	}
	if equal < 5 {
		t.Fatalf("identical upgrades ended equal in %d/10 runs", equal)
	}
}

func TestReproducibleFromSeed(t *testing.T) {
	run := func() Result {
		cfg := DefaultConfig()
		cfg.MaxIter = 1500
		cfg.Seed = 42
		res, err := Default().Solve(context.Background(), mixedBundle(t), ChanceObjective{Budget: 900}, tail.New(nil, 0), cfg)
		if err != nil {
			t.Fatal(err)
		}
		return res
	}
	a, b := run(), run()
	if a.BestMetric != b.BestMetric || a.BestEnergy != b.BestEnergy {
		t.Fatalf("best differs: %v vs %v", a.BestMetric, b.BestMetric)
	}
	if len(a.History) != len(b.History) || a.Restarts != b.Restarts {
		t.Fatalf("history %d vs %d, restarts %d vs %d", len(a.History), len(b.History), a.Restarts, b.Restarts)
	}
	sa, sb := a.Best.Skips(), b.Best.Skips()
	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("best strategies differ: %v vs %v", sa, sb)
		}
	}
}

func TestSolveImprovesOnSeed(t *testing.T) {
	for _, an := range []Annealer{Adaptive{}, Baseline{}} {
		init := mixedBundle(t)
		ev := tail.New(nil, 0)
		p0 := init.Evaluate(ev, 900).P
		cfg := DefaultConfig()
		cfg.MaxIter = 1500
		cfg.Seed = 7
		res, err := an.Solve(context.Background(), init, ChanceObjective{Budget: 900}, ev, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if res.BestMetric < p0 {
			t.Fatalf("%s: best %v below seed %v", an.Name(), res.BestMetric, p0)
		}
		for i := 1; i < len(res.History); i++ {
			if res.History[i].Metric < res.History[i-1].Metric {
				t.Fatalf("%s: best history not improving: %+v", an.Name(), res.History)
			}
		}
		if init.Skips()[0] != 0 {
			t.Fatalf("%s: solve mutated its initial state", an.Name())
		}
	}
}

func TestCancelledSolveReturnsUsableBest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev := tail.New(nil, 0)
	res, err := Adaptive{}.Solve(ctx, mixedBundle(t), ChanceObjective{Budget: 900}, ev, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cancelled || res.Best == nil {
		t.Fatalf("cancelled=%v best=%v", res.Cancelled, res.Best)
	}
	if p := res.Best.Evaluate(ev, 900).P; p < 0 || p > 1 {
		t.Fatalf("best evaluates to %v", p)
	}

	cfg := DefaultConfig()
	cfg.Deadline = time.Now().Add(-time.Second)
	res, _ = Baseline{}.Solve(context.Background(), mixedBundle(t), ChanceObjective{Budget: 900}, ev, cfg)
	if !res.Cancelled || res.Iterations != 0 {
		t.Fatalf("past deadline: cancelled=%v iterations=%d", res.Cancelled, res.Iterations)
	}
}

func TestProgressOncePerBatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIter = 1000
	cfg.ItersPerTemp = 50
	calls := 0
	last := -1.0
	cfg.Progress = func(best state.Snapshot, progress float64) {
		calls++
		if progress <= last || progress > 1 {
			t.Errorf("progress %v after %v", progress, last)
		}
		last = progress
		if len(best.Skips) != 6 {
			t.Errorf("snapshot has %d skips", len(best.Skips))
		}
	}
	res, err := Adaptive{}.Solve(context.Background(), mixedBundle(t), ChanceObjective{Budget: 900}, tail.New(nil, 0), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if limit := res.Iterations / cfg.ItersPerTemp; calls > limit {
		t.Fatalf("%d progress calls for %d iterations", calls, res.Iterations)
	}
}

func TestCostObjectivePrefersCheaper(t *testing.T) {
	init := mixedBundle(t)
	ev := tail.New(nil, 0)
	obj := CostObjective{Budget: 4000, Target: 0.5, Norm: init.ExpectedCost(), Penalty: 10}
	cfg := DefaultConfig()
	cfg.MaxIter = 1500
	cfg.Seed = 3
	res, err := Adaptive{}.Solve(context.Background(), init, obj, ev, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.BestMetric > init.ExpectedCost() {
		t.Fatalf("expected cost rose from %v to %v", init.ExpectedCost(), res.BestMetric)
	}
	if p := res.Best.Evaluate(ev, 4000).P; p < 0.5 {
		t.Fatalf("constraint violated: P=%v", p)
	}
}

func TestHistoryPointJSON(t *testing.T) {
	b, err := json.Marshal(HistoryPoint{Seconds: 1.5, States: 3, Metric: 0.25})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[1.5,3,0.25]" {
		t.Fatalf("got %s", b)
	}
	var back HistoryPoint
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back != (HistoryPoint{Seconds: 1.5, States: 3, Metric: 0.25}) {
		t.Fatalf("decoded %+v", back)
	}
}

func TestParseNeighbour(t *testing.T) {
	for _, n := range []Neighbour{Mixed, Single, Multi, Crossover} {
		if got, ok := ParseNeighbour(n.String()); !ok || got != n {
			t.Fatalf("%v round-trips to %v", n, got)
		}
	}
	if _, ok := ParseNeighbour("genetic"); ok {
		t.Fatal("unknown neighbour accepted")
	}
}
