package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/xtding233/honing-forecast/internal/metrics"
	"github.com/xtding233/honing-forecast/internal/payload"
	"github.com/xtding233/honing-forecast/internal/rules"
	"github.com/xtding233/honing-forecast/internal/service"
)

func newTestServer() *Server {
	m := metrics.New(false)
	return New(service.New(rules.NewLoader(""), m, ""), m, 4096)
}

func do(t *testing.T, s http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(), "GET", "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, err := uuid.Parse(rec.Header().Get(RequestIDHeader)); err != nil {
		t.Fatalf("missing request id: %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestIDEchoed(t *testing.T) {
	id := uuid.New().String()
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != id {
		t.Fatalf("request id = %q, want %q", got, id)
	}
}

func TestSolveNothingSelected(t *testing.T) {
	rec := do(t, newTestServer(), "POST", "/solve", `{"budget": [1,2,3], "seed": 1, "max_iter": 100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	var got struct {
		Chance      float64                `json:"chance"`
		Performance map[string]interface{} `json:"performance"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Chance != 1 {
		t.Fatalf("chance = %v", got.Chance)
	}
	// no SA evaluations: the ratio is 0/0 and must render as -0.0
	if !strings.Contains(rec.Body.String(), `"newton_per_sa":-0.0`) {
		t.Fatalf("NaN ratio not rendered as -0.0: %s", rec.Body)
	}
}

func TestSolveBadPayload(t *testing.T) {
	rec := do(t, newTestServer(), "POST", "/solve", `{"normal_hone_ticks": [[true], [1]]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var e payload.ErrorReply
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.Kind != payload.KindInputShape || e.Error == "" {
		t.Fatalf("error reply = %+v", e)
	}
}

func TestSolveBodyTooLarge(t *testing.T) {
	rec := do(t, newTestServer(), "POST", "/solve", `{"profile":"`+strings.Repeat("x", 5000)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSolveWrongMethod(t *testing.T) {
	rec := do(t, newTestServer(), "GET", "/solve", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetricsServed(t *testing.T) {
	s := newTestServer()
	do(t, s, "POST", "/solve", `{"max_iter": 10}`)
	rec := do(t, s, "GET", "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "honed_solves_total") {
		t.Fatalf("metrics: %d %s", rec.Code, rec.Body)
	}
}
