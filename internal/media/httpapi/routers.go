package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/metrics"
)

type RouterConfig struct {
	// UploadsDir is served under /uploads/. Empty disables the route.
	UploadsDir string
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/media", h.CreateMedia)
	r.Get("/media/{owner_type}/{owner_id}", h.ListMedia)

	r.Post("/project-location", h.CreateLocation)
	r.Get("/projects/{employee_id}", h.ListProjects)
	r.Get("/all-projects", h.ListAllProjects)
	r.Get("/geocode/{city}", h.Geocode)

	if cfg.UploadsDir != "" {
		files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir)))
		r.Handle("/uploads/*", storedFilesOnly(files))
	}

	// static frontend; empty PublicDir disables it
	if h.publicDir != "" {
		r.Get("/", h.Index)
		r.Handle("/*", http.FileServer(http.Dir(h.publicDir)))
	}

	return r
}
