package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/law-leads-crawler/internal/config"
	"github.com/JakeFAU/law-leads-crawler/internal/lead"
	"github.com/JakeFAU/law-leads-crawler/internal/metrics"
)

const readyTimeout = 2 * time.Second

// LeadService is the subset of the lead store the operator API needs.
type LeadService interface {
	Get(ctx context.Context, apolloID string) (lead.Candidate, error)
	CountByStatus(ctx context.Context) (lead.StatusCounts, error)
	ResetFailed(ctx context.Context, apolloIDs []string) (int64, error)
	Ping(ctx context.Context) error
}

// FirmLookup finds an existing firm by website without creating it.
type FirmLookup interface {
	Lookup(ctx context.Context, websiteURL string) (int64, error)
}

// EmailLister lists the addresses stored for a firm.
type EmailLister interface {
	List(ctx context.Context, firmID int64) ([]lead.ExtractedEmail, error)
}

// Server wires HTTP handlers to the stores.
type Server struct {
	router chi.Router
	leads  LeadService
	firms  FirmLookup
	emails EmailLister
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	leads LeadService,
	firms FirmLookup,
	emails EmailLister,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		leads:  leads,
		firms:  firms,
		emails: emails,
		logger: logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1/leads", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Get("/stats", s.getStats)
		r.Post("/retry", s.retryAllFailed)
		r.Route("/{apollo_id}", func(r chi.Router) {
			r.Get("/", s.getLead)
			r.Post("/retry", s.retryLead)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.leads.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statsResponse struct {
	Counts lead.StatusCounts `json:"counts"`
	Total  int64             `json:"total"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.leads.CountByStatus(r.Context())
	if err != nil {
		s.logger.Error("count by status failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to count leads")
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	s.writeJSON(w, http.StatusOK, statsResponse{Counts: counts, Total: total})
}

type leadResponse struct {
	Lead   lead.Candidate        `json:"lead"`
	FirmID *int64                `json:"firm_id"`
	Emails []lead.ExtractedEmail `json:"emails"`
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	apolloID := chi.URLParam(r, "apollo_id")
	c, err := s.leads.Get(r.Context(), apolloID)
	if err != nil {
		s.writeLookupError(w, err, "lead not found")
		return
	}

	resp := leadResponse{Lead: c, Emails: []lead.ExtractedEmail{}}
	if c.Website == "" {
		s.writeJSON(w, http.StatusOK, resp)
		return
	}
	firmID, err := s.firms.Lookup(r.Context(), c.Website)
	switch {
	case errors.Is(err, lead.ErrNotFound):
		s.writeJSON(w, http.StatusOK, resp)
		return
	case err != nil:
		s.logger.Warn("firm lookup failed", zap.String("apollo_id", apolloID), zap.Error(err))
		s.writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.FirmID = &firmID

	emails, err := s.emails.List(r.Context(), firmID)
	if err != nil {
		s.logger.Error("list emails failed", zap.Int64("firm_id", firmID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list emails")
		return
	}
	if emails != nil {
		resp.Emails = emails
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) retryLead(w http.ResponseWriter, r *http.Request) {
	apolloID := chi.URLParam(r, "apollo_id")
	n, err := s.leads.ResetFailed(r.Context(), []string{apolloID})
	if err != nil {
		s.logger.Error("reset failed lead", zap.String("apollo_id", apolloID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to reset lead")
		return
	}
	if n == 0 {
		c, err := s.leads.Get(r.Context(), apolloID)
		if err != nil {
			s.writeLookupError(w, err, "lead not found")
			return
		}
		s.writeError(w, http.StatusConflict, "only failed leads can be retried; lead is "+string(c.Status))
		return
	}
	s.logger.Info("lead queued for retry", zap.String("apollo_id", apolloID))
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"apollo_id": apolloID,
		"status":    string(lead.StatusPending),
	})
}

func (s *Server) retryAllFailed(w http.ResponseWriter, r *http.Request) {
	n, err := s.leads.ResetFailed(r.Context(), nil)
	if err != nil {
		s.logger.Error("reset failed leads", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to reset leads")
		return
	}
	s.logger.Info("failed leads queued for retry", zap.Int64("count", n))
	s.writeJSON(w, http.StatusAccepted, map[string]int64{"reset": n})
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, lead.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, notFound)
		return
	}
	s.logger.Error("lead lookup failed", zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "lookup failed")
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			reqID, _ := r.Context().Value(requestIDKey{}).(string)
			logger.Debug("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.String("request_id", reqID),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
					writeJSON(logger, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeJSON(zap.NewNop(), w, http.StatusForbidden, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(s.logger, w, status, payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(s.logger, w, status, map[string]string{"error": msg})
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}
