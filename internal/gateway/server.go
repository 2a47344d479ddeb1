package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.Recoverer)

	registrars := g.routeRegistrars()

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.config.metricsEnabled() {
		r.Handle("/metrics", g.metrics.Handler())
	}

	// Webhooks use their own HMAC auth per source.
	r.Post("/webhooks/{source}", g.dispatcher.ServeHTTP)

	// Module pages authenticate with their own session tokens.
	for _, reg := range registrars {
		reg.PublicRoutes(r)
	}

	// Admin endpoints require auth and are not mounted without it.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.audit))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/modules", g.handleGetAllModules())
				r.Post("/messages", g.handleSendMessage())
				for _, reg := range registrars {
					reg.AdminRoutes(r)
				}
			})
		})
	} else {
		g.logger.Warn("gateway admin API disabled: no auth configured")
	}

	return r
}
