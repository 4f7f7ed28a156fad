package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ytthumbs/internal/http/handlers"
	"ytthumbs/internal/middleware"
)

// Options configures the router beyond the handlers themselves.
type Options struct {
	Logger             zerolog.Logger
	Gatherer           prometheus.Gatherer
	RateLimitPerMin    int
	CORSAllowedOrigins []string
	// StaticDir is served under /static when set (filesystem storage).
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSAllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).
			Post("/thumbnails/generate", app.GenerateThumbnail)
		r.Get("/generations/{id}", app.GetGeneration)
		r.Get("/generations/{id}/archive", app.GetGenerationArchive)
	})

	return r
}
