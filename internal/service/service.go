// Package service runs parsed payloads against the current rules. Every
// transport (HTTP, gRPC, Lambda, arena) goes through it.
package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/xtding233/honing-forecast/internal/honing"
	"github.com/xtding233/honing-forecast/internal/metrics"
	"github.com/xtding233/honing-forecast/internal/payload"
	"github.com/xtding233/honing-forecast/internal/rules"
	"github.com/xtding233/honing-forecast/internal/solver"
	"github.com/xtding233/honing-forecast/internal/state"
	"github.com/xtding233/honing-forecast/internal/tail"
)

// ProgressFunc receives intermediate results. It runs on the solving
// goroutine and must not block for long.
type ProgressFunc func(payload.Progress)

// Reply is one of solver.ChanceResult, payload.CostReply or
// solver.HistogramResult depending on the request mode.
type Reply interface{}

// Service is safe for concurrent use; each call owns its solver state.
type Service struct {
	rules   rules.Resolver
	metrics *metrics.Metrics
	profile string // used when the request names none
}

// New returns a Service. m may be nil.
func New(r rules.Resolver, m *metrics.Metrics, defaultProfile string) *Service {
	return &Service{rules: r, metrics: m, profile: defaultProfile}
}

// Solve answers req. progress may be nil.
func (s *Service) Solve(ctx context.Context, req payload.Request, progress ProgressFunc) (reply Reply, err error) {
	start := time.Now()
	defer s.metrics.Track()()

	var counters tail.Counters
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = payload.Kind(err)
		}
		s.metrics.ObserveSolve(string(req.Mode), outcome, time.Since(start), counters)
	}()

	profile := req.Profile
	if profile == "" {
		profile = s.profile
	}
	_, params, err := s.rules.Resolve(profile, rules.Overrides{Seed: req.Seed, MaxIter: req.MaxIter})
	if err != nil {
		return nil, err
	}
	if params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.Timeout)
		defer cancel()
	}

	problem, err := params.Tables.Problem(req.NormalTicks, req.AdvTicks, req.Strategy)
	if err != nil {
		return nil, err
	}
	opts := params.Options
	if progress != nil {
		opts.Anneal.Progress = func(snap state.Snapshot, p float64) {
			progress(payload.NewProgress(snap, p))
		}
	}
	sv, err := solver.New(problem, opts)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("mode", string(req.Mode)).
		Str("rules", params.Version).
		Int("upgrades", len(problem.Upgrades)).
		Msg("solve")

	switch req.Mode {
	case payload.ChanceToCost:
		r, err := sv.ChanceToCost(ctx, req.DesiredChance)
		if err != nil {
			return nil, err
		}
		counters = r.Performance.Counters
		return payload.CostReply{
			CostResult: r,
			Purchase:   params.Catalog.PlanPurchase(req.Budget, r.Budget),
		}, nil
	case payload.Histogram:
		r, err := sv.Histogram(ctx, req.Budget, req.Skips, params.HistogramTrials, opts.Anneal.Seed)
		if err != nil {
			return nil, err
		}
		return r, nil
	case payload.CostToChance, "":
		r, err := sv.CostToChance(ctx, req.Budget)
		if err != nil {
			return nil, err
		}
		counters = r.Performance.Counters
		return r, nil
	}
	return nil, errors.Wrapf(honing.ErrInputShape, "unknown mode %q", req.Mode)
}
