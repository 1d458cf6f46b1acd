package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sdrshnv/deid/internal/otel"
	"github.com/sdrshnv/deid/internal/redactor"
)

const defaultTimeout = 30 * time.Second

// MaxBodyBytes bounds a redact request body.
const MaxBodyBytes = 1 << 20

// Redactor is the pipeline the API serves.
type Redactor interface {
	Analyze(ctx context.Context, text string) (*redactor.Result, error)
	CheckInferenceAvailable(ctx context.Context) bool
	NamesEnabled() bool
}

// Server holds the dependencies of the HTTP API.
type Server struct {
	router    *chi.Mux
	redactor  Redactor
	apiKeys   []string
	limiter   *RateLimiter
	version   string
	startTime time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithAPIKeys requires one of keys on every /v1 request.
func WithAPIKeys(keys []string) Option {
	return func(s *Server) { s.apiKeys = keys }
}

// WithRateLimit limits each caller to rpm requests per minute. Zero disables.
func WithRateLimit(rpm int) Option {
	return func(s *Server) { s.limiter = NewRateLimiter(rpm) }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer builds a Server around r.
func NewServer(r Redactor, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		redactor:  r,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler (chi router with all middleware and routes).
// The redact route has no request timeout; the name detector bounds its own call.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.Middleware())

	// Unauthenticated
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKeys))
		r.Use(RateLimitMiddleware(s.limiter))

		r.Post("/v1/redact", s.handleRedact)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultTimeout))
			r.Get("/v1/inference/status", s.handleInferenceStatus)
		})
	})

	return r
}
