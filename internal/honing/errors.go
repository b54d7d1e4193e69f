package honing

import "github.com/pkg/errors"

// Error kinds surfaced by the core. Numerical fallbacks never produce errors.
var (
	ErrInputShape  = errors.New("input shape")
	ErrInternal    = errors.New("internal invariant violated")
	ErrCancelled   = errors.New("solve cancelled")
	ErrInvalidProb = errors.New("invalid probability p; must be 0..1")
)
