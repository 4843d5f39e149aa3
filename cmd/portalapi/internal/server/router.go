package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	portalmw "github.com/pagopa/io-developer-portal-backend-sub000/cmd/portalapi/internal/middleware"
)

// RouterOptions controls the construction of the portal HTTP router.
type RouterOptions struct {
	Handlers       *PortalHandlers
	Authn          func(http.Handler) http.Handler
	Logger         *slog.Logger
	CORSOptions    *cors.Options
	Middleware     []func(http.Handler) http.Handler
	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler
	ExtraRoutes    func(chi.Router)
}

// DefaultCORSOptions returns the CORS policy for the given origins.
func DefaultCORSOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			portalmw.OnBehalfOfHeader,
		},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with shared middleware, CORS policy and
// the portal handlers mounted behind authentication.
func NewRouter(opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(portalmw.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	corsCfg := DefaultCORSOptions(nil)
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/health", healthHandler)

	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}

	if opts.Handlers != nil {
		r.Group(func(r chi.Router) {
			if opts.Authn != nil {
				r.Use(opts.Authn)
			}
			r.Use(portalmw.RequireIdentity)
			r.Use(portalmw.OnBehalfOf)
			opts.Handlers.Mount(r)
		})
	} else {
		logger.Warn("portal handlers not configured, only health endpoints are served")
	}

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}
