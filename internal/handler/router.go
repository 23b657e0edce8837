package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// NewRouter builds the chi router with the full middleware stack.
// Registration endpoints require a bearer token; read endpoints do not.
func NewRouter(h *EventHandler, authSecret string, logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(logger))          // structured access log
	r.Use(CORS)                    // permissive CORS

	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)

		r.Group(func(r chi.Router) {
			r.Use(Auth(authSecret))
			r.Post("/", h.CreateEvent)
			r.Post("/{id}/status", h.TransitionStatus)
			r.Post("/{id}/register", h.Register)
			r.Delete("/{id}/register", h.Unregister)
		})
	})

	return r
}
