// internal/app/features/lodges/routes.go
package lodges

import (
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for lodge management.
func Routes(h *Handler, tokens *auth.TokenService) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.RequireAuth)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/district", h.District)
	return r
}
