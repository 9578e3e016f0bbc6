package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/openshelf/openshelf/internal/metrics"
)

// RouterConfig contains everything the router wires together.
type RouterConfig struct {
	AuthHandler *AuthHandler
	BookHandler *BookHandler

	// AuthRequired authenticates the request and rejects failures.
	AuthRequired func(http.Handler) http.Handler

	// AuthOptional attaches an identity when a valid token is present and
	// passes anonymous requests through.
	AuthOptional func(http.Handler) http.Handler

	// RateLimit guards the credential endpoints. Nil disables limiting.
	RateLimit func(http.Handler) http.Handler

	// Metrics instruments requests and serves MetricsPath. Nil disables.
	Metrics     *metrics.Metrics
	MetricsPath string

	// CoverDir, when set, is served statically under /covers/.
	CoverDir string

	MaxBodySize int64

	Logger zerolog.Logger
}

// NewRouter builds the chi router for the API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxBodySize))
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	rateLimit := cfg.RateLimit
	if rateLimit == nil {
		rateLimit = passthrough
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handleHealth)

		r.Route("/auth", func(r chi.Router) {
			cfg.AuthHandler.RegisterRoutes(r, rateLimit, cfg.AuthRequired)
		})

		r.Route("/books", func(r chi.Router) {
			cfg.BookHandler.RegisterRoutes(r, cfg.AuthRequired, cfg.AuthOptional)
		})
	})

	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, cfg.Metrics.Handler())
	}

	if cfg.CoverDir != "" {
		r.Handle("/covers/*", http.StripPrefix("/covers/", http.FileServer(http.Dir(cfg.CoverDir))))
	}

	return r
}

// handleHealth reports liveness.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Message:   "openshelf API is running",
		Timestamp: time.Now().UTC(),
	})
}

// passthrough is the no-op middleware used when rate limiting is disabled.
func passthrough(next http.Handler) http.Handler {
	return next
}

// requestLogger logs one structured line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	log := logger.With().Str("component", "http").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
