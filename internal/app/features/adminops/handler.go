package adminops

import (
	"context"
	"net/http"

	"github.com/dalemusser/lodgehub/internal/app/migrate"
	snapshotstore "github.com/dalemusser/lodgehub/internal/app/store/snapshots"
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/respond"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler exposes the reconciliation and rollback batch operations.
// Both are SYSTEM_ADMIN-only and expect a maintenance window.
type Handler struct {
	Reconciler *migrate.Reconciler
	Rollback   *migrate.RollbackManager
	Snapshots  *snapshotstore.Manager
	Log        *zap.Logger
}

func NewHandler(rec *migrate.Reconciler, rb *migrate.RollbackManager, snaps *snapshotstore.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		Reconciler: rec,
		Rollback:   rb,
		Snapshots:  snaps,
		Log:        logger,
	}
}

// Reconcile handles POST /admin/reconciliation.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if !h.requireSystemAdmin(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	report, err := h.Reconciler.Run(ctx)
	if err != nil {
		if err == migrate.ErrNoInput {
			respond.Error(w, h.Log, faults.New(faults.Validation, err.Error()))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, report)
}

// Revert handles POST /admin/rollback.
func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	if !h.requireSystemAdmin(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	counts, err := h.Rollback.Run(ctx)
	if err != nil {
		if err == snapshotstore.ErrNoSnapshot {
			respond.Error(w, h.Log, faults.New(faults.NotFound, err.Error()))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, counts)
}

// ListSnapshots handles GET /admin/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if !h.requireSystemAdmin(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sets, err := h.Snapshots.List(ctx)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"snapshots": sets})
}

func (h *Handler) requireSystemAdmin(w http.ResponseWriter, r *http.Request) bool {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, faults.New(faults.Authentication, "authentication required"))
		return false
	}
	if caller.Role != roles.SystemAdmin {
		respond.Error(w, h.Log, faults.New(faults.Authorization, "SYSTEM_ADMIN required"))
		return false
	}
	return true
}
