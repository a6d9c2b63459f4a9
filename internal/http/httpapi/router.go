// Package httpapi assembles the public HTTP surface.
package httpapi

import (
	"net/http"
	"time"

	"chainpost/internal/http/handlers"
	"chainpost/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Options carries the cross-cutting router configuration.
type Options struct {
	Logger          zerolog.Logger
	JWTSecret       string
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	if len(opts.CORSOrigins) > 0 {
		r.Use(middleware.CORS(opts.CORSOrigins))
	}
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Post("/v1/auth/google", app.AuthGoogleVerify)

	// Webhook deliveries authenticate by payload signature, not session.
	r.Route("/v1/callbacks", func(r chi.Router) {
		r.Post("/caption", app.CallbackCaption)
		r.Post("/post", app.CallbackPost)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))
		r.Get("/v1/me", app.Me)
		r.Get("/v1/stats", app.StatsSummary)
		r.Route("/v1/projects", func(r chi.Router) {
			r.Post("/", app.ProjectsCreate)
			r.Get("/", app.ProjectsList)
			r.Get("/{id}", app.ProjectGet)
			r.Get("/{id}/archive", app.ProjectArchive)
		})
	})

	return r
}
