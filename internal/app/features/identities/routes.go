// internal/app/features/identities/routes.go
package identities

import (
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for identity registration and lookup.
// Registration is open; lookup requires a verified token.
func Routes(h *Handler, tokens *auth.TokenService) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Register)
	r.Group(func(r chi.Router) {
		r.Use(tokens.RequireAuth)
		r.Get("/{id}", h.Get)
	})
	return r
}
