package honing

import (
	cryptoRand "crypto/rand"
	"math/rand/v2"
)

// RandomSource is the randomness used by simulations and the annealer.
type RandomSource interface {
	Float64() float64 // [0, 1)
	IntN(n int) int   // [0, n)
}

type rng struct{ r *rand.Rand }

func (s *rng) Float64() float64 { return s.r.Float64() }

func (s *rng) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	return s.r.IntN(n)
}

// DefaultRNG returns a ChaCha8 stream keyed from crypto/rand, used when no
// seed is configured. It is not safe for concurrent use.
func DefaultRNG() RandomSource {
	var key [32]byte
	cryptoRand.Read(key[:])
	return &rng{r: rand.New(rand.NewChaCha8(key))}
}

// NewSeededRNG returns a PCG source; the same seed always yields the same stream.
func NewSeededRNG(seed uint64) RandomSource {
	return &rng{r: rand.New(rand.NewPCG(seed, 0))}
}
