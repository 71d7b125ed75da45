package api

import (
	"net/http"

	"ytdl-server/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter setup routes and apply global middleware
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(cfg.Debug))
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg.AllowedOrigins))

	r.Get("/", h.Index)
	r.Handle("/static/*", http.FileServer(http.FS(h.Assets)))
	r.Get("/progress/{task_id}", h.Progress)
	r.Get("/history", h.ListHistory)

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		r.Post("/formats", h.Formats)
		r.Post("/download", h.Download)
	})

	return r
}
