package rules

import (
	_ "embed"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed defaults/rules.yaml
var defaultYAML []byte

// Default returns the built-in rules.
func Default() (RawConfig, error) {
	var cfg RawConfig
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		return RawConfig{}, errors.Wrap(err, "embedded rules")
	}
	return cfg, nil
}

// Paths helper for the rules and profile files.
type Paths struct {
	BaseDir string // base directory, e.g. /etc/honed; empty uses only the defaults
}

func (p Paths) RulesPath() string {
	return filepath.Join(p.BaseDir, "rules.yaml")
}
func (p Paths) ProfilePath(profile string) string {
	return filepath.Join(p.BaseDir, "profiles", profile+".yaml")
}

// Loader reads YAML rules and merges embedded default → rules.yaml →
// profiles/<name>.yaml.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig // key: profile name, "" for none
}

// NewLoader creates a rules loader with the given base directory.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

// Dir is the watched base directory.
func (l *Loader) Dir() string { return l.paths.BaseDir }

// LoadMerged loads and merges the layers for profile (optional). It returns
// the merged RawConfig without validation.
func (l *Loader) LoadMerged(profile string) (RawConfig, error) {
	l.mu.RLock()
	if cfg, ok := l.cache[profile]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	merged, err := Default()
	if err != nil {
		return RawConfig{}, err
	}
	if l.paths.BaseDir != "" {
		rulesCfg, err := readYAML(l.paths.RulesPath())
		if err != nil {
			return RawConfig{}, errors.Wrap(err, "read rules")
		}
		merged = mergeRaw(merged, rulesCfg)
		if profile != "" {
			profCfg, err := readYAML(l.paths.ProfilePath(profile))
			if err != nil {
				return RawConfig{}, errors.Wrapf(err, "read profile %q", profile)
			}
			merged = mergeRaw(merged, profCfg)
		}
	}

	l.mu.Lock()
	l.cache[profile] = merged
	l.mu.Unlock()
	return merged, nil
}

// Invalidate clears the loader's cache. Call after hot-reload detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
}

// readYAML loads a YAML file into RawConfig. Missing files return zero cfg, no error.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, nil
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, errors.Wrap(err, path)
	}
	return cfg, nil
}

// mergeRaw performs a deep merge: 'b' overrides 'a' where set. Tables and the
// market are replaced as a whole; rates and strategies merge per key.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}
	if len(b.Rates) > 0 {
		rates := make(map[string]float64, len(a.Rates)+len(b.Rates))
		for k, v := range a.Rates {
			rates[k] = v
		}
		for k, v := range b.Rates {
			rates[k] = v
		}
		out.Rates = rates
	}
	if len(b.Market) > 0 {
		out.Market = append([]BundleConfig(nil), b.Market...)
	}

	// normal
	switch {
	case out.Normal == nil && b.Normal != nil:
		c := *b.Normal
		out.Normal = &c
	case out.Normal != nil && b.Normal != nil:
		c := *out.Normal
		setPtr(&c.IncPerFail, b.Normal.IncPerFail)
		setPtr(&c.MaxFactor, b.Normal.MaxFactor)
		setPtr(&c.ArtisanRate, b.Normal.ArtisanRate)
		setPtr(&c.WeaponRow, b.Normal.WeaponRow)
		if len(b.Normal.Levels) > 0 {
			c.Levels = append([]LevelConfig(nil), b.Normal.Levels...)
		}
		out.Normal = &c
	}

	// advanced
	switch {
	case out.Advanced == nil && b.Advanced != nil:
		c := *b.Advanced
		out.Advanced = &c
	case out.Advanced != nil && b.Advanced != nil:
		c := *out.Advanced
		setPtr(&c.WeaponRow, b.Advanced.WeaponRow)
		if len(b.Advanced.Tiers) > 0 {
			c.Tiers = append([]TierConfig(nil), b.Advanced.Tiers...)
		}
		if len(b.Advanced.Strategies) > 0 {
			st := make(map[string]StrategyConfig, len(c.Strategies)+len(b.Advanced.Strategies))
			for k, v := range c.Strategies {
				st[k] = v
			}
			for k, v := range b.Advanced.Strategies {
				st[k] = v
			}
			c.Strategies = st
		}
		out.Advanced = &c
	}

	// solver
	switch {
	case out.Solver == nil && b.Solver != nil:
		c := *b.Solver
		out.Solver = &c
	case out.Solver != nil && b.Solver != nil:
		c := *out.Solver
		s := b.Solver
		setPtr(&c.MaxIter, s.MaxIter)
		setPtr(&c.MinIter, s.MinIter)
		setPtr(&c.ItersPerTemp, s.ItersPerTemp)
		setPtr(&c.RestartPeriod, s.RestartPeriod)
		setPtr(&c.RestartMin, s.RestartMin)
		setPtr(&c.CrossoverProb, s.CrossoverProb)
		setPtr(&c.MultiProb, s.MultiProb)
		setPtr(&c.MultiMax, s.MultiMax)
		setPtr(&c.Temperature, s.Temperature)
		setPtr(&c.InitialScale, s.InitialScale)
		setPtr(&c.ScalerBatch, s.ScalerBatch)
		setPtr(&c.LearningRate, s.LearningRate)
		setPtr(&c.TargetStart, s.TargetStart)
		setPtr(&c.TargetEnd, s.TargetEnd)
		setPtr(&c.KSTolerance, s.KSTolerance)
		setPtr(&c.BruteThreshold, s.BruteThreshold)
		setPtr(&c.ChanceTolerance, s.ChanceTolerance)
		setPtr(&c.MaxOuterIter, s.MaxOuterIter)
		setPtr(&c.BisectIter, s.BisectIter)
		setPtr(&c.PolishIter, s.PolishIter)
		setPtr(&c.Penalty, s.Penalty)
		setPtr(&c.Seed, s.Seed)
		setPtr(&c.HistogramTrials, s.HistogramTrials)
		if s.Neighbour != "" {
			c.Neighbour = s.Neighbour
		}
		if s.Timeout != "" {
			c.Timeout = s.Timeout
		}
		out.Solver = &c
	}

	return out
}

func setPtr[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}
