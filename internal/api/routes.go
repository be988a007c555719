package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/UkralStul/animeblog-service/internal/dataloader"
)

// RouteOptions configures the cross-cutting middleware.
type RouteOptions struct {
	CORSAllowedOrigins []string
	RateLimitRPM       int
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

func (h *Handler) Routes(m *Middleware, opts RouteOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(m.CORS(opts.CORSAllowedOrigins))
	r.Use(m.RateLimit(opts.RateLimitRPM))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/anime", func(r chi.Router) {
		r.Post("/add", h.AddAnime)
		r.Get("/get", h.GetAnime)
	})

	r.Route("/user", func(r chi.Router) {
		r.Post("/add", h.AddUser)
		r.With(dataloader.Middleware(h.store)).Get("/get", h.GetUsers)
		r.Post("/login", h.Login)
	})

	r.Post("/blog/add", h.AddBlog)
	r.Post("/review/add", h.AddReview)

	return r
}
