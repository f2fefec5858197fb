// internal/app/features/adminops/routes.go
package adminops

import (
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for batch maintenance operations.
func Routes(h *Handler, tokens *auth.TokenService) chi.Router {
	r := chi.NewRouter()
	r.Use(tokens.RequireAuth)
	r.Post("/reconciliation", h.Reconcile)
	r.Post("/rollback", h.Revert)
	r.Get("/snapshots", h.ListSnapshots)
	return r
}
