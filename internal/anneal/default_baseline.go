//go:build baseline

package anneal

// FeatureVersion names the annealer variant compiled in as the default.
const FeatureVersion = "baseline-1"

// Default returns the annealer selected at build time.
func Default() Annealer { return Baseline{} }
