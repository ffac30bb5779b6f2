package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/ragchat/internal/api/handlers"
	"github.com/cloo-solutions/ragchat/internal/api/middleware"
)

const maxBodyBytes int64 = 1 << 20

type RouterConfig struct {
	ChatHandler      *handlers.ChatHandler
	DocumentsHandler *handlers.DocumentsHandler
	HealthHandler    *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog)
	r.Use(middleware.CORS)
	r.Use(middleware.LimitBody(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", cfg.ChatHandler.Chat)
		r.Post("/update-documents", cfg.DocumentsHandler.Update)
	})

	return r
}
