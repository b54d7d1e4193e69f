package payload

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/xtding233/honing-forecast/internal/honing"
	"github.com/xtding233/honing-forecast/internal/market"
	"github.com/xtding233/honing-forecast/internal/rules"
	"github.com/xtding233/honing-forecast/internal/solver"
	"github.com/xtding233/honing-forecast/internal/state"
)

// CostReply answers chance_to_cost, including how to buy the shortfall
// between the request budget and the suggested one.
type CostReply struct {
	solver.CostResult
	Purchase market.Plan `json:"purchase"`
}

// Progress is emitted at annealer batch boundaries while a solve runs.
type Progress struct {
	Type                  string         `json:"type"`
	StateBundle           state.Snapshot `json:"state_bundle"`
	EstProgressPercentage float64        `json:"est_progress_percentage"`
}

// NewProgress wraps an annealer snapshot; progress is in [0,1].
func NewProgress(s state.Snapshot, progress float64) Progress {
	return Progress{Type: "intermediate_result", StateBundle: s, EstProgressPercentage: 100 * progress}
}

// ErrorReply is the structured error body returned to callers.
type ErrorReply struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Error kinds as reported to callers.
const (
	KindInputShape = "input_shape"
	KindConfig     = "config"
	KindCancelled  = "cancelled"
	KindInternal   = "internal"
)

// Kind classifies err for callers.
func Kind(err error) string {
	switch {
	case errors.Is(err, honing.ErrInputShape), errors.Is(err, honing.ErrInvalidProb):
		return KindInputShape
	case errors.Is(err, rules.ErrInvalid):
		return KindConfig
	case errors.Is(err, honing.ErrCancelled), errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}

// NewError builds the reply body for err.
func NewError(err error) ErrorReply {
	return ErrorReply{Error: err.Error(), Kind: Kind(err)}
}

// Encode marshals any reply. Performance ratios carry their own NaN handling.
func Encode(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode reply")
	}
	return b, nil
}
