package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcingworks/rfqsmith/internal/api"
	"github.com/sourcingworks/rfqsmith/internal/api/handlers"
	"github.com/sourcingworks/rfqsmith/internal/api/middleware"
)

type RouterConfig struct {
	APIKey          string
	MaxBodyBytes    int64
	DocumentHandler *handlers.DocumentHandler
	SearchHandler   *handlers.SearchHandler
	DraftHandler    *handlers.DraftHandler
	ChatHandler     *handlers.ChatHandler
	AdminHandler    *handlers.AdminHandler
}

// DefaultMaxBodyBytes bounds uploads; documents above this are rejected
// before any parsing.
const DefaultMaxBodyBytes int64 = 32 * 1024 * 1024

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.Metrics)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBody))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
			r.Post("/{id}/images", cfg.DocumentHandler.UploadImage)
		})
		r.Get("/images/{id}", cfg.DocumentHandler.GetImage)

		r.Post("/search", cfg.SearchHandler.Search)
		r.Post("/search/images", cfg.SearchHandler.SearchImages)

		r.Post("/validate", cfg.ChatHandler.Validate)
		r.Post("/analyze", cfg.ChatHandler.Analyze)
		r.Post("/chat", cfg.ChatHandler.Chat)

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", cfg.DraftHandler.Create)
			r.Get("/", cfg.DraftHandler.List)
			r.Get("/{id}", cfg.DraftHandler.Get)
			r.Delete("/{id}", cfg.DraftHandler.Delete)
			r.Patch("/{id}/status", cfg.DraftHandler.UpdateStatus)
			r.Post("/{id}/edit", cfg.DraftHandler.Edit)
			r.Post("/{id}/export", cfg.DraftHandler.Export)
		})

		r.Post("/admin/reclassify", cfg.AdminHandler.Reclassify)
	})

	return r
}
