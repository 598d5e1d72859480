package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Checkout-Gate/checkoutgate/internal/domain/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the inbound adapter that connects the storefront to HTTP
// clients. It owns the listener, the middleware chain, and graceful
// shutdown; the route handlers live in Handler.
type Server struct {
	handler        *Handler
	server         *http.Server
	addr           string
	logger         *slog.Logger
	limiter        ratelimit.Limiter
	limitConfig    ratelimit.Config
	allowedOrigins []string
	healthChecker  *HealthChecker
	metrics        *Metrics
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:3000" (localhost only).
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithLogger sets the logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRateLimiter enables global rate limiting with the given limiter and
// windowed config. When not set, the rate limit step is skipped.
func WithRateLimiter(limiter ratelimit.Limiter, config ratelimit.Config) Option {
	return func(s *Server) {
		s.limiter = limiter
		s.limitConfig = config
	}
}

// WithAllowedOrigins sets the origins granted cross-origin read access.
// A single "*" entry allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(s *Server) {
		s.healthChecker = hc
	}
}

// NewServer creates a Server wrapping the given route handler.
func NewServer(handler *Handler, opts ...Option) *Server {
	s := &Server{
		handler:        handler,
		addr:           "127.0.0.1:3000",
		logger:         slog.Default(),
		allowedOrigins: []string{"*"},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// buildHandler assembles the route table and the middleware chain.
//
// Middleware order (outermost first):
//  1. Metrics - record duration and status (outermost to capture full duration)
//  2. RequestID - extract/generate request ID and enrich logger
//  3. Recovery - last-resort panic handler (after RequestID so it can log with request_id)
//  4. RealIP - extract client IP for rate limiting identity
//  5. RateLimit - global, before route dispatch
//  6. CORS - cross-origin policy and preflight, before cookie-dependent steps
//  7. Nonce - fresh CSP nonce, emits the CSP header before handlers write
//  8. CSRF - cookie-bound token issuance and POST verification
//
// The order is load-bearing: CSRF needs the cookie from the request (steps
// before it must not consume the body), CSP needs the nonce value, and rate
// limiting needs the client IP.
func (s *Server) buildHandler(reg *prometheus.Registry) http.Handler {
	s.metrics = NewMetrics(reg)
	s.handler.metrics = s.metrics

	var handler http.Handler = s.handler.Routes()
	handler = CSRFMiddleware(s.metrics)(handler)
	handler = NonceMiddleware(handler)
	handler = CORSMiddleware(s.allowedOrigins)(handler)
	if s.limiter != nil {
		handler = RateLimitMiddleware(s.limiter, s.limitConfig, s.metrics)(handler)
	}
	handler = RealIPMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	handler = RequestIDMiddleware(s.logger)(handler)
	handler = MetricsMiddleware(s.metrics)(handler)

	mux := http.NewServeMux()
	if s.healthChecker != nil {
		mux.Handle("/health", s.healthChecker.Handler())
	}
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	}))
	mux.Handle("/", handler)
	return mux
}

// Start begins accepting HTTP connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.buildHandler(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting HTTP server", "addr", s.addr)
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down HTTP server")
		return s.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return err
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	return s.shutdown()
}
