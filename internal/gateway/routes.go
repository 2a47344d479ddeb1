package gateway

import "github.com/go-chi/chi/v5"

// ServiceRoutesPrefix prefixes the service names of RouteRegistrars.
// A module publishes itself as "http.routes.<module id>".
const ServiceRoutesPrefix = "http.routes."

// RouteRegistrar is implemented by modules that serve HTTP endpoints
// through the gateway.
type RouteRegistrar interface {
	// PublicRoutes mounts routes on the gateway root without admin auth.
	// The module authenticates these itself.
	PublicRoutes(r chi.Router)

	// AdminRoutes mounts routes under /api behind the admin auth
	// middleware. Not called when no admin auth is configured.
	AdminRoutes(r chi.Router)
}
