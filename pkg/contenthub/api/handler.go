// Package api exposes a contenthub.Hub over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/content-hub/pkg/contenthub"
)

// DefaultCORSOrigins are the development frontends allowed when none are configured
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

const (
	// DefaultMaxUploadBytes bounds multipart request bodies
	DefaultMaxUploadBytes int64 = 50 << 20

	immutableMaxAge = 365 * 24 * time.Hour
)

// Options configure the HTTP surface
type Options struct {
	// AdminMode enables upload and delete endpoints
	AdminMode bool

	// TokenAuth, when set, additionally requires a valid bearer token on admin endpoints
	TokenAuth *jwtauth.JWTAuth

	CORSOrigins    []string
	MaxUploadBytes int64
	Logger         *slog.Logger

	// Metrics, when set, observes every request; MetricsHandler is mounted at /metrics
	Metrics        MetricsCollector
	MetricsHandler http.Handler
}

// Handler serves the content hub API
type Handler struct {
	hub    *contenthub.Hub
	opts   Options
	logger *slog.Logger
}

// NewHandler creates the API handler for hub
func NewHandler(hub *contenthub.Hub, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = DefaultCORSOrigins
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{hub: hub, opts: opts, logger: opts.Logger}
}

// Routes returns the complete router, middleware included
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(h.logger))
	r.Use(RecoveryMiddleware(h.logger))
	if h.opts.Metrics != nil {
		r.Use(MetricsMiddleware(h.opts.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if h.opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/config", h.Config)
		r.Mount("/articles", h.articleRoutes())
		r.Mount("/pdfs", h.pdfRoutes())
		r.Mount("/infographics", h.infographicRoutes())
		r.Mount("/uploads", h.uploadRoutes())
	})

	return r
}

// admin returns the middleware stack for mutating endpoints
func (h *Handler) admin() chi.Middlewares {
	return chi.Middlewares{
		AdminGuard(h.opts.AdminMode, h.opts.TokenAuth),
		RequestSizeLimitMiddleware(h.opts.MaxUploadBytes),
	}
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// ConfigResponse is what the frontend needs to know about the server
type ConfigResponse struct {
	AdminMode bool `json:"adminMode"`
}

// Config reports whether admin features should be shown
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, ConfigResponse{AdminMode: h.opts.AdminMode})
}
