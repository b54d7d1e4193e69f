// Package server exposes the solver over HTTP.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xtding233/honing-forecast/internal/metrics"
	"github.com/xtding233/honing-forecast/internal/payload"
	"github.com/xtding233/honing-forecast/internal/service"
)

// RequestIDHeader carries the request ID in and out.
const RequestIDHeader = "X-Request-Id"

type ctxKey struct{}

// RequestID returns the ID attached by the middleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type Server struct {
	svc     *service.Service
	maxBody int64
	mux     *http.ServeMux
}

// New wires the routes. m may be nil, in which case /metrics is not served.
func New(svc *service.Service, m *metrics.Metrics, maxBody int64) *Server {
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	s := &Server{svc: svc, maxBody: maxBody, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /solve", s.handleSolve)
	s.mux.HandleFunc("GET /healthz", handleHealth)
	if m != nil {
		s.mux.Handle("GET /metrics", m.Handler())
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}
	w.Header().Set(RequestIDHeader, id)
	r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	log.Info().
		Str("request_id", id).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rec.status).
		Dur("took", time.Since(start)).
		Msg("http")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, payload.ErrorReply{Error: err.Error(), Kind: payload.KindInputShape})
		return
	}
	req, err := payload.Parse(body)
	if err != nil {
		writeError(w, err)
		return
	}
	reply, err := s.svc.Solve(r.Context(), req, nil)
	if err != nil {
		log.Warn().Err(err).Str("request_id", RequestID(r.Context())).Msg("solve failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch payload.Kind(err) {
	case payload.KindInputShape:
		status = http.StatusBadRequest
	case payload.KindConfig:
		status = http.StatusUnprocessableEntity
	case payload.KindCancelled:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, payload.NewError(err))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
