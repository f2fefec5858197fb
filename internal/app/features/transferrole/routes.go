// internal/app/features/transferrole/routes.go
package transferrole

import (
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for privilege transfers.
func Routes(h *Handler, tokens *auth.TokenService) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.RequireAuth)
	r.Post("/", h.Transfer) // this will be mounted under /transfers
	return r
}
