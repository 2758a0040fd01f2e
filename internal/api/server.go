// Package api exposes the scoring engine over HTTP under /api/v1.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ganbari-quest/ganbari/internal/app/activity"
	"github.com/ganbari-quest/ganbari/internal/app/evaluation"
	"github.com/ganbari-quest/ganbari/internal/app/ledger"
	"github.com/ganbari-quest/ganbari/internal/app/loginbonus"
	"github.com/ganbari-quest/ganbari/internal/app/status"
	"github.com/ganbari-quest/ganbari/internal/domain"
	"github.com/ganbari-quest/ganbari/internal/health"
)

// Services are the application services behind the routes.
// Health may be nil.
type Services struct {
	Catalog    *activity.Catalog
	Recorder   *activity.Recorder
	Status     *status.Manager
	Ledger     *ledger.Service
	LoginBonus *loginbonus.Engine
	Evaluator  *evaluation.Evaluator
	Decay      *evaluation.DecayRunner
	Health     *health.Checker
}

// Server is the HTTP API server.
type Server struct {
	svc            Services
	log            *zap.Logger
	metricsEnabled bool
	limiter        *ipLimiter
}

// NewServer creates an API server.
func NewServer(svc Services, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, log: log.Named("api")}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetRateLimit enables per-client rate limiting. perSecond <= 0 disables it.
func (s *Server) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = newIPLimiter(perSecond, burst)
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}

		r.Route("/activity-logs", func(r chi.Router) {
			r.Post("/", s.handleRecordActivity)
			r.Get("/", s.handleListActivityLogs)
			r.Delete("/{id}", s.handleCancelActivityLog)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Get("/", s.handleListActivities)
			r.Post("/", s.handleCreateActivity)
			r.Get("/{id}", s.handleGetActivity)
			r.Patch("/{id}", s.handleUpdateActivity)
			r.Delete("/{id}", s.handleHideActivity)
			r.Post("/{id}/visibility", s.handleSetVisibility)
		})

		r.Route("/children", func(r chi.Router) {
			r.Get("/", s.handleListChildren)
			r.Post("/", s.handleCreateChild)
			r.Get("/{childId}", s.handleGetChild)
			r.Get("/{childId}/today", s.handleTodayRecorded)
		})

		r.Get("/status/{childId}", s.handleGetStatus)
		r.Post("/status/{childId}", s.handleApplyStatus)

		r.Get("/login-bonus/{childId}", s.handleLoginBonusStatus)
		r.Post("/login-bonus/{childId}/claim", s.handleClaimLoginBonus)

		r.Get("/points/{childId}", s.handlePointBalance)
		r.Get("/points/{childId}/history", s.handlePointHistory)
		r.Post("/points/convert", s.handleConvertPoints)

		r.Get("/evaluations/{childId}", s.handleListEvaluations)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/weekly-evaluation", s.handleRunWeekly)
			r.Get("/weekly-evaluation/runs", s.handleWeeklyRuns)
			r.Post("/daily-decay", s.handleRunDecay)
			r.Get("/daily-decay/runs", s.handleDecayRuns)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	code, state := http.StatusOK, "ok"
	if !s.svc.Health.IsHealthy() {
		code, state = http.StatusServiceUnavailable, "degraded"
	}
	writeJSON(w, code, map[string]any{
		"status": state,
		"checks": s.svc.Health.Statuses(),
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes {"error":{"code","message"}}.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": msg,
		},
	})
}

// fail maps a service error onto a status code and error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := httpStatus(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		msg = "internal error"
	}
	writeError(w, status, code, msg)
}

func httpStatus(code string) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyRecorded, domain.CodeAlreadyClaimed,
		domain.CodeAlreadyEvaluated, domain.CodeJobRunning:
		return http.StatusConflict
	case domain.CodeCancelExpired, domain.CodeInsufficientPoints, domain.CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadBody = errors.New("malformed JSON body")
