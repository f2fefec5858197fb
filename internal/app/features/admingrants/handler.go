package admingrants

import (
	"context"
	"encoding/json"
	"net/http"

	grantstore "github.com/dalemusser/lodgehub/internal/app/store/admingrants"
	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/dalemusser/lodgehub/internal/app/system/authz"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/respond"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler manages explicit per-lodge admin grants.
type Handler struct {
	Dir    *directory.Directory
	Grants *grantstore.Store
	Lodges *lodgestore.Store
	Authz  *authz.Resolver
	Log    *zap.Logger
}

func NewHandler(dir *directory.Directory, grants *grantstore.Store, lodges *lodgestore.Store, resolver *authz.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		Dir:    dir,
		Grants: grants,
		Lodges: lodges,
		Authz:  resolver,
		Log:    logger,
	}
}

type grantRequest struct {
	IdentityID string `json:"identity_id"`
	LodgeID    string `json:"lodge_id"`
}

// Grant handles POST /grants. The caller's permission must cover the target
// lodge and their role must sit above LODGE_ADMIN for that scope.
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	identityID, lodgeID, ok := h.decode(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.authorize(ctx, w, r, lodgeID) {
		return
	}

	if _, err := h.Dir.FindByID(ctx, identityID); err != nil {
		if err == directory.ErrNotFound {
			respond.Error(w, h.Log, faults.New(faults.NotFound, "identity not found"))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}

	g, err := h.Grants.Grant(ctx, identityID, lodgeID)
	if err != nil {
		if err == grantstore.ErrDuplicateGrant {
			respond.Error(w, h.Log, faults.New(faults.Conflict, err.Error()))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, g)
}

// Revoke handles POST /grants/revoke. Grants are deactivated, never deleted.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	identityID, lodgeID, ok := h.decode(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if !h.authorize(ctx, w, r, lodgeID) {
		return
	}

	if err := h.Grants.Revoke(ctx, identityID, lodgeID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, primitive.ObjectID, bool) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed request body"))
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	identityID, err := primitive.ObjectIDFromHex(req.IdentityID)
	if err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed identity_id"))
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	lodgeID, err := primitive.ObjectIDFromHex(req.LodgeID)
	if err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed lodge_id"))
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return identityID, lodgeID, true
}

// authorize requires the caller's effective permission to cover the lodge and
// to carry more authority than the LODGE_ADMIN tier being granted.
func (h *Handler) authorize(ctx context.Context, w http.ResponseWriter, r *http.Request, lodgeID primitive.ObjectID) bool {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, faults.New(faults.Authentication, "authentication required"))
		return false
	}
	ident, err := h.Dir.FindByID(ctx, caller.ID)
	if err != nil {
		if err == directory.ErrNotFound {
			respond.Error(w, h.Log, faults.New(faults.Authentication, "caller identity no longer exists"))
			return false
		}
		respond.Error(w, h.Log, err)
		return false
	}
	scope := lodgeID
	perm, err := h.Authz.Resolve(ctx, ident, &scope)
	if err != nil {
		respond.Error(w, h.Log, err)
		return false
	}
	if !perm.IsSystemWide && perm.Role != roles.DistrictAdmin {
		respond.Error(w, h.Log, faults.New(faults.Authorization, "DISTRICT_ADMIN or above required to manage grants"))
		return false
	}
	return true
}
