package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves probes, Prometheus metrics, and the latest cycle's records.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer wires /healthz, /readyz, /metrics, and the read-only /v1 record
// API backed by store. Nothing is served until Start.
func NewServer(addr string, ready sharedobs.ReadinessChecker, store *RecordStore, logger *slog.Logger) *Server {
	s := &Server{logger: logger}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.logRequests(routes(ready, store)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Record bodies can be a full season of smoke polygons.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func routes(ready sharedobs.ReadinessChecker, store *RecordStore) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/{product}", store.handleIndex)
	mux.HandleFunc("GET /v1/{product}/{date}", store.handleRecord)
	return mux
}

// Start listens until Shutdown, then returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// ServeHTTP runs a request through the full handler chain without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.srv.Handler.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests logs /v1 traffic at debug level. Probe and scrape routes are
// too frequent to be worth a line each.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/") {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
