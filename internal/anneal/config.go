package anneal

import (
	"time"

	"github.com/xtding233/honing-forecast/internal/state"
)

// Neighbour selects how candidate strategies are proposed.
type Neighbour int

const (
	Mixed     Neighbour = iota // single, multi or crossover drawn per move
	Single                     // ±1 on one upgrade
	Multi                      // ±1 on up to MultiMax upgrades
	Crossover                  // copy one identical upgrade's skip to another
)

func (n Neighbour) String() string {
	switch n {
	case Single:
		return "single"
	case Multi:
		return "multi"
	case Crossover:
		return "crossover"
	}
	return "mixed"
}

// ParseNeighbour accepts the names String returns.
func ParseNeighbour(s string) (Neighbour, bool) {
	for _, n := range []Neighbour{Mixed, Single, Multi, Crossover} {
		if n.String() == s {
			return n, true
		}
	}
	return Mixed, false
}

// ProgressFunc receives a copy of the best state so far at batch boundaries.
// It runs synchronously on the solving goroutine.
type ProgressFunc func(best state.Snapshot, progress float64)

// Config tunes one solve. Zero iteration counts, temperatures and scales take
// the values of DefaultConfig; zero probabilities disable their move.
type Config struct {
	MaxIter       int
	MinIter       int
	ItersPerTemp  int
	RestartPeriod int
	RestartMin    int
	CrossoverProb float64
	MultiProb     float64
	MultiMax      int
	Neighbour     Neighbour
	Temperature   float64
	InitialScale  float64
	ScalerBatch   int
	LearningRate  float64
	Target        TargetFunc
	KSTolerance   float64

	// Baseline schedule endpoints.
	StartTemp float64
	EndTemp   float64

	Seed     uint64
	Deadline time.Time
	Progress ProgressFunc
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		MaxIter:       5000,
		MinIter:       200,
		ItersPerTemp:  100,
		RestartPeriod: 800,
		RestartMin:    100,
		CrossoverProb: 0.2,
		MultiProb:     0.2,
		MultiMax:      3,
		Neighbour:     Mixed,
		Temperature:   1,
		InitialScale:  0.02,
		ScalerBatch:   100,
		LearningRate:  0.1,
		Target:        DefaultTarget,
		KSTolerance:   1e-9,
		StartTemp:     0.05,
		EndTemp:       1e-4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxIter <= 0 {
		c.MaxIter = d.MaxIter
	}
	if c.MinIter < 0 {
		c.MinIter = 0
	}
	if c.ItersPerTemp <= 0 {
		c.ItersPerTemp = d.ItersPerTemp
	}
	if c.RestartPeriod <= 0 {
		c.RestartPeriod = d.RestartPeriod
	}
	if c.RestartMin <= 0 {
		c.RestartMin = d.RestartMin
	}
	if c.MultiMax <= 0 {
		c.MultiMax = d.MultiMax
	}
	if c.Temperature <= 0 {
		c.Temperature = d.Temperature
	}
	if c.InitialScale <= 0 {
		c.InitialScale = d.InitialScale
	}
	if c.ScalerBatch <= 0 {
		c.ScalerBatch = d.ScalerBatch
	}
	if c.LearningRate <= 0 {
		c.LearningRate = d.LearningRate
	}
	if c.Target == nil {
		c.Target = d.Target
	}
	if c.StartTemp <= 0 {
		c.StartTemp = d.StartTemp
	}
	if c.EndTemp <= 0 {
		c.EndTemp = d.EndTemp
	}
	return c
}

// restartAfter is the number of non-improving iterations that triggers a
// restart; it shrinks as the run progresses.
func (c Config) restartAfter(progress float64) int {
	return max(c.RestartMin, int(float64(c.RestartPeriod)*(1-progress)))
}
