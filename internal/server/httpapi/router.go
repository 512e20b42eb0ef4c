package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the funnel's routes and middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(handler.requestIDMiddleware)
	r.Use(handler.recoverMiddleware)
	r.Use(handler.loggingMiddleware)

	r.Get("/healthz", handler.healthz)

	r.Get("/auth/google/login", handler.googleLogin)
	r.Get("/auth/google/callback", handler.googleCallback)

	r.Route("/api/early-access", func(r chi.Router) {
		r.Post("/signup", handler.signup)
		r.Get("/download", handler.download)
		r.Get("/stats", handler.stats)
	})

	return r
}
