//go:build !baseline

package anneal

// FeatureVersion names the annealer variant compiled in as the default.
const FeatureVersion = "adaptive-2"

// Default returns the annealer selected at build time.
func Default() Annealer { return Adaptive{} }
