package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kjannette/rate-tracker/internal/metrics"
	"github.com/kjannette/rate-tracker/internal/models"
	"github.com/kjannette/rate-tracker/internal/scheduler"
	"github.com/kjannette/rate-tracker/internal/tracker"
)

const maxQueryLimit = 1000

var codeRegexp = regexp.MustCompile(`^[A-Za-z]{2,10}$`)

var log = logrus.WithField("component", "api")

// ArchiveReader serves archived samples. Nil when the archive is disabled.
type ArchiveReader interface {
	GetByCode(ctx context.Context, code string, limit int) ([]models.ArchivedSample, error)
	GetLatest(ctx context.Context, code string) (*models.ArchivedSample, error)
}

// Pinger reports archive database reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Tracker   *tracker.Tracker
	Scheduler *scheduler.RefreshScheduler
	Hub       *Hub
	Archive   ArchiveReader
	DB        Pinger
	Metrics   *metrics.RefreshMetrics
	Gatherer  prometheus.Gatherer
}

type Server struct {
	tracker    *tracker.Tracker
	scheduler  *scheduler.RefreshScheduler
	hub        *Hub
	archive    ArchiveReader
	db         Pinger
	metrics    *metrics.RefreshMetrics
	httpServer *http.Server
	apiKey     string
}

func NewServer(deps Deps, port int, apiKey, corsOrigin string) *Server {
	s := &Server{
		tracker:   deps.Tracker,
		scheduler: deps.Scheduler,
		hub:       deps.Hub,
		archive:   deps.Archive,
		db:        deps.DB,
		metrics:   deps.Metrics,
		apiKey:    apiKey,
	}

	mux := http.NewServeMux()

	// Currency routes
	mux.HandleFunc("GET /v1/currencies", s.handleListCurrencies)
	mux.HandleFunc("POST /v1/currencies", s.handleAddCurrency)
	mux.HandleFunc("DELETE /v1/currencies/{code}", s.handleRemoveCurrency)
	mux.HandleFunc("GET /v1/currencies/{code}/history", s.handleHistory)

	// Refresh routes
	mux.HandleFunc("POST /v1/refresh", s.handleRefresh)
	mux.HandleFunc("GET /v1/status", s.handleStatus)

	// Archive routes
	mux.HandleFunc("GET /v1/archive/{code}", s.handleArchive)
	mux.HandleFunc("GET /v1/archive/{code}/latest", s.handleArchiveLatest)

	// Event stream
	if s.hub != nil {
		mux.HandleFunc("GET /v1/events", s.hub.ServeWS)
	}

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := s.authMiddleware(corsMiddleware(mux, corsOrigin))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Handler exposes the routed handler for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	log.Infof("REST API server started on http://localhost%s", s.httpServer.Addr)
	log.Infof("health check: http://localhost%s/health", s.httpServer.Addr)
	if s.apiKey != "" {
		log.Info("authentication: enabled (Bearer token)")
	} else {
		log.Warn("authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

// authMiddleware accepts a Bearer header, or a token query parameter on the
// event stream since browsers cannot set headers on websocket upgrades.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if r.URL.Path == "/v1/events" && r.URL.Query().Get("token") == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func validateCode(code string) bool {
	return codeRegexp.MatchString(code)
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
