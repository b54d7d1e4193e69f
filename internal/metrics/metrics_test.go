package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xtding233/honing-forecast/internal/tail"
)

func TestObserveSolve(t *testing.T) {
	m := New(false)
	m.ObserveSolve("cost_to_chance", "ok", 250*time.Millisecond, tail.Counters{
		Trivial: 1, Brute: 4, SA: 10, KS: 3, Overflow: 2, StatesEvaluated: 18,
	})

	if got := testutil.ToFloat64(m.Solves.WithLabelValues("cost_to_chance", "ok")); got != 1 {
		t.Fatalf("solves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TailEvals.WithLabelValues("saddlepoint")); got != 10 {
		t.Fatalf("saddlepoint evals = %v, want 10", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks.WithLabelValues("overflow")); got != 2 {
		t.Fatalf("overflow fallbacks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.States); got != 18 {
		t.Fatalf("states = %v, want 18", got)
	}
	if n := testutil.CollectAndCount(m.Duration); n != 1 {
		t.Fatalf("duration series = %d, want 1", n)
	}
}

func TestTrackInFlight(t *testing.T) {
	m := New(false)
	done := m.Track()
	if got := testutil.ToFloat64(m.InFlight); got != 1 {
		t.Fatalf("in flight = %v, want 1", got)
	}
	done()
	if got := testutil.ToFloat64(m.InFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSolve("histogram", "ok", time.Second, tail.Counters{})
	m.Track()()
	m.Reloaded()
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(false)
	m.Reloaded()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "honed_rules_reloads_total 1") {
		t.Fatalf("metrics body missing reload counter:\n%s", rec.Body.String())
	}
}
