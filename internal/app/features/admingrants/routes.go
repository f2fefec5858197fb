// internal/app/features/admingrants/routes.go
package admingrants

import (
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for per-lodge admin grant management.
func Routes(h *Handler, tokens *auth.TokenService) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.RequireAuth)
	r.Post("/", h.Grant)
	r.Post("/revoke", h.Revoke)
	return r
}
