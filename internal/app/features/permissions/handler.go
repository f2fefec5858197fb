package permissions

import (
	"context"
	"net/http"

	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/dalemusser/lodgehub/internal/app/system/authz"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/normalize"
	"github.com/dalemusser/lodgehub/internal/app/system/respond"
	"github.com/dalemusser/lodgehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler resolves the caller's effective permission.
type Handler struct {
	Dir   *directory.Directory
	Authz *authz.Resolver
	Log   *zap.Logger
}

func NewHandler(dir *directory.Directory, resolver *authz.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		Dir:   dir,
		Authz: resolver,
		Log:   logger,
	}
}

// Resolve handles GET /permissions[?scope=<lodge id>]. Without a scope the
// response describes everything the caller may act on; with a scope it is
// either a permission covering that lodge or 403/404.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, faults.New(faults.Authentication, "authentication required"))
		return
	}

	var scope *primitive.ObjectID
	if raw := normalize.QueryParam(r.URL.Query().Get("scope")); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respond.Error(w, h.Log, faults.New(faults.Validation, "malformed scope id"))
			return
		}
		scope = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ident, err := h.Dir.FindByID(ctx, caller.ID)
	if err != nil {
		if err == directory.ErrNotFound {
			respond.Error(w, h.Log, faults.New(faults.Authentication, "caller identity no longer exists"))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}

	perm, err := h.Authz.Resolve(ctx, ident, scope)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, perm)
}
