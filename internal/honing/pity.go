package honing

import (
	"math"

	"github.com/pkg/errors"
)

// PityTracker replays one upgrade tap by tap. Once Fails reaches Pity the
// next tap succeeds regardless of its probability.
type PityTracker struct {
	Pity  int
	Fails int // failed taps so far, protected taps included
	rng   RandomSource
}

// NewPityTracker starts a tracker with no failures. A nil rng uses
// DefaultRNG.
func NewPityTracker(pity int, rng RandomSource) *PityTracker {
	if rng == nil {
		rng = DefaultRNG()
	}
	return &PityTracker{Pity: pity, rng: rng}
}

// Skip records n protected taps as failures, never past Pity.
func (pt *PityTracker) Skip(n int) {
	pt.Fails = min(pt.Fails+n, pt.Pity)
}

// Done reports whether the next tap is forced.
func (pt *PityTracker) Done() bool { return pt.Fails >= pt.Pity }

// Tap rolls one tap at probability p. A success resets the tracker.
func (pt *PityTracker) Tap(p float64) (bool, error) {
	hit := pt.Done()
	if !hit {
		var err error
		if hit, err = roll(p, pt.rng); err != nil {
			return false, err
		}
	}
	if hit {
		pt.Fails = 0
	} else {
		pt.Fails++
	}
	return hit, nil
}

// roll succeeds with probability p. p=0 never consumes randomness, nor does p=1.
func roll(p float64, rng RandomSource) (bool, error) {
	if err := checkProb(p); err != nil {
		return false, err
	}
	switch p {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return rng.Float64() < p, nil
}

func checkProb(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return errors.Wrapf(ErrInvalidProb, "p=%v", p)
	}
	return nil
}
