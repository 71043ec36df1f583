// Package http exposes the expense API over JSON and serves the static client.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/klauspost/compress/gzhttp"

	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/cors"
	"expensetracker/internal/middleware/metrics"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
	"expensetracker/internal/telemetry"
)

const maxBodyBytes = 1 << 20

// Server wires the expense handlers to a net/http server.
type Server struct {
	http.Server

	svc      *services.ExpenseService
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time
}

type options struct {
	publicDir      string
	allowedOrigins []string
	ratePerMinute  int
	logger         *applog.Logger
	headers        security.HeadersConfig
	telemetry      *telemetry.Telemetry
}

// Option customises a Server.
type Option func(*options)

// WithPublicDir serves static files from dir under "/" when the directory exists.
func WithPublicDir(dir string) Option {
	return func(o *options) { o.publicDir = dir }
}

// WithAllowedOrigins sets the CORS allow list. "*" allows every origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *options) { o.allowedOrigins = origins }
}

// WithRateLimit caps mutating requests per client per minute.
func WithRateLimit(perMinute int) Option {
	return func(o *options) { o.ratePerMinute = perMinute }
}

func WithLogger(l *applog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHeaders replaces the default security headers.
func WithHeaders(cfg security.HeadersConfig) Option {
	return func(o *options) { o.headers = cfg }
}

// WithTelemetry records request metrics and exposes them on GET /metrics.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(o *options) { o.telemetry = t }
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.ExpenseService, opts ...Option) *Server {
	o := options{
		allowedOrigins: []string{"*"},
		ratePerMinute:  ratelimit.DefaultConfig().RequestsPerMinute,
		headers:        security.DefaultHeadersConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = applog.New(applog.DefaultConfig())
	}
	logger := o.logger.WithComponent(applog.ComponentHTTP)

	rlCfg := ratelimit.DefaultConfig()
	rlCfg.RequestsPerMinute = o.ratePerMinute

	s := &Server{
		svc:      svc,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(rlCfg),
		detector: security.NewDetector(),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)
	api := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(limit(h))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /expenses", api(s.handleListExpenses))
	mux.Handle("POST /expenses", api(s.handleCreateExpense))
	mux.Handle("PUT /expenses/{id}", api(s.handleUpdateExpense))
	mux.Handle("DELETE /expenses/{id}", api(s.handleDeleteExpense))
	mux.Handle("GET /summary", api(s.handleSummary))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	if fi, err := os.Stat(o.publicDir); o.publicDir != "" && err == nil && fi.IsDir() {
		mux.Handle("GET /", http.FileServer(http.Dir(o.publicDir)))
	} else if o.publicDir != "" {
		logger.Debug("Static directory not mounted", "dir", o.publicDir)
	}

	var h http.Handler = mux
	if o.telemetry != nil {
		mux.Handle("GET /metrics", o.telemetry.Handler())
		if mw, err := metrics.New(o.telemetry.Meter()); err != nil {
			logger.Warn("Request metrics disabled", "error", err)
		} else {
			h = mw.Middleware(h)
		}
	}
	h = s.withSuspiciousLogging(h)
	h = security.NewHeadersMiddleware(o.headers).Middleware(h)
	h = s.tracer.Middleware(h)
	h = cors.Middleware(o.allowedOrigins...)(h)
	h = gzhttp.GzipHandler(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Slog().Handler(), slog.LevelError),
	}
	return s
}

// Shutdown stops accepting requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// ListenAndServe is like http.Server.ListenAndServe but treats a graceful
// shutdown as success.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Server listening", "addr", s.Addr)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) withSuspiciousLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).
				WithComponent(applog.ComponentSecurity).
				WarnContext(r.Context(), "Suspicious request",
					applog.FieldClientIP, s.detector.ExtractClientIP(r),
					applog.FieldPath, r.URL.Path,
					applog.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).
		WithComponent(applog.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "Too many requests")
}
