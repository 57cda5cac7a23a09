package api

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/recipebox/pkg/httputil"
	"github.com/platinummonkey/recipebox/pkg/middleware"
	"github.com/platinummonkey/recipebox/pkg/observability"
	"github.com/platinummonkey/recipebox/pkg/storage"
)

// Options configures the middleware around the API router. The zero value serves without
// metrics, rate limiting, body limits or timeouts.
type Options struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics

	AllowedOrigins []string
	MaxBodyBytes   int64
	RequestTimeout time.Duration

	RateLimiter     middleware.Limiter
	RateLimiterName string
	RateLimitWindow time.Duration
	// TrustProxy keys rate limits on X-Forwarded-For and X-Real-IP instead of the peer address
	TrustProxy bool

	// PasswordCost is the bcrypt cost for user passwords
	PasswordCost int
}

// Server represents our API server
type Server struct {
	store   storage.Storage
	router  *mux.Router
	handler http.Handler
	opts    Options
}

// NewServer creates a new API server over store
func NewServer(store storage.Storage, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}
	if opts.RateLimiterName == "" {
		opts.RateLimiterName = "memory"
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = time.Minute
	}

	s := &Server{
		store:  store,
		router: mux.NewRouter(),
		opts:   opts,
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, msgNotFound)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMethodNotAllowed(w, r.Method)
	})

	s.router.Use(observability.TracingMiddleware("recipebox-api"))
	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}

	s.setupRoutes()
	s.handler = s.wrap(s.router)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.RegisterRoutes(NewRecipeHandlers(s.store))
	s.RegisterRoutes(NewStepHandlers(s.store))
	s.RegisterRoutes(NewIngredientHandlers(s.store))
	s.RegisterRoutes(NewUserHandlers(s.store, s.opts.PasswordCost))
}

// wrap applies the request middleware, outermost first
func (s *Server) wrap(h http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware(s.opts.Logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(s.opts.AllowedOrigins),
	}
	if s.opts.RateLimiter != nil {
		chain = append(chain, middleware.RateLimit(s.opts.RateLimiter, s.opts.RateLimiterName, s.opts.RateLimitWindow, s.opts.Metrics, s.opts.TrustProxy))
	}
	if s.opts.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes))
	}
	chain = append(chain, httputil.ContentTypeMiddleware)
	if s.opts.RequestTimeout > 0 {
		chain = append(chain, httputil.TimeoutMiddleware(s.opts.RequestTimeout))
	}

	return httputil.Chain(chain...)(h)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}

// handle registers h for path both with and without a trailing slash
func handle(router *mux.Router, path string, h http.HandlerFunc, methods ...string) {
	router.HandleFunc(path, h).Methods(methods...)
	router.HandleFunc(path+"/", h).Methods(methods...)
}
