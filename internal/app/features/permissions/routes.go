// internal/app/features/permissions/routes.go
package permissions

import (
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for permission resolution.
func Routes(h *Handler, tokens *auth.TokenService) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.RequireAuth)
	r.Get("/", h.Resolve) // this will be mounted under /permissions
	return r
}
