package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sagarc03/packway"
)

// Resolver maps a repository identifier to an absolute path under the
// repository root. filesystem.Root implements it.
type Resolver interface {
	Resolve(name string) (string, error)
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	Policy packway.AccessPolicy
	// ReadVerifier guards fetches and static files, WriteVerifier guards
	// pushes. nil means public.
	ReadVerifier  RequestVerifier
	WriteVerifier RequestVerifier
	CORS          CORSConfig
	// Metrics and Exchanges are optional.
	Metrics   *Metrics
	Exchanges packway.ExchangeLog
	Logger    *slog.Logger
}

// Handler serves the git smart HTTP protocol for every repository under a root.
type Handler struct {
	config  HandlerConfig
	root    Resolver
	factory packway.RepositoryFactory

	read  http.Handler
	write http.Handler
}

// NewHandler creates a Handler resolving repositories through root and
// opening them with factory.
func NewHandler(config *HandlerConfig, root Resolver, factory packway.RepositoryFactory) *Handler {
	h := &Handler{
		config:  *config,
		root:    root,
		factory: factory,
	}
	h.read = AuthMiddleware(config.ReadVerifier)(http.HandlerFunc(h.serve))
	h.write = AuthMiddleware(config.WriteVerifier)(http.HandlerFunc(h.serve))
	return h
}

// Router returns an http.Handler serving all repositories.
//
// git URLs nest arbitrarily deep under the repository identifier, so a single
// catch-all route hands every request to the gateway's own route table.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.config.Logger))
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware(h.config.Metrics))

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Handle("/*", http.HandlerFunc(h.route))

	return r
}
