package lodges

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/dalemusser/lodgehub/internal/app/system/authz"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/respond"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/app/system/sanitize"
	"github.com/dalemusser/lodgehub/internal/app/system/timeouts"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves lodge creation and jurisdiction queries.
type Handler struct {
	Dir    *directory.Directory
	Lodges *lodgestore.Store
	Authz  *authz.Resolver
	Log    *zap.Logger
}

func NewHandler(dir *directory.Directory, lodges *lodgestore.Store, resolver *authz.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		Dir:    dir,
		Lodges: lodges,
		Authz:  resolver,
		Log:    logger,
	}
}

type createRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	District    string `json:"district,omitempty"`
	ParentLodge string `json:"parent_lodge,omitempty"`
}

type lodgeResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	District    string `json:"district,omitempty"`
	ParentLodge string `json:"parent_lodge,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// Create handles POST /lodges. DISTRICT_ADMIN or above.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, faults.New(faults.Authentication, "authentication required"))
		return
	}
	if !roles.OutranksOrEqual(caller.Role, roles.DistrictAdmin) {
		respond.Error(w, h.Log, faults.New(faults.Authorization, "DISTRICT_ADMIN required"))
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed request body"))
		return
	}
	if req.Name == "" {
		respond.Error(w, h.Log, faults.New(faults.Validation, "name is required"))
		return
	}

	l := models.Lodge{
		Name:     sanitize.Text(req.Name),
		Location: sanitize.Text(req.Location),
		IsActive: true,
	}
	if req.District != "" {
		id, err := primitive.ObjectIDFromHex(req.District)
		if err != nil {
			respond.Error(w, h.Log, faults.New(faults.Validation, "malformed district id"))
			return
		}
		l.District = &id
	}
	if req.ParentLodge != "" {
		id, err := primitive.ObjectIDFromHex(req.ParentLodge)
		if err != nil {
			respond.Error(w, h.Log, faults.New(faults.Validation, "malformed parent_lodge id"))
			return
		}
		l.ParentLodge = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Lodges.Create(ctx, l)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, toResponse(&created))
}

// Get handles GET /lodges/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed lodge id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, err := h.Lodges.GetByID(ctx, id)
	if err != nil {
		if err == lodgestore.ErrNotFound {
			respond.Error(w, h.Log, faults.New(faults.NotFound, "lodge not found"))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, toResponse(l))
}

// District handles GET /lodges/{id}/district: the jurisdiction closure of the
// given lodge. The caller's permission must cover the anchor lodge.
func (h *Handler) District(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, faults.New(faults.Authentication, "authentication required"))
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed lodge id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
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
	scope := id
	if _, err := h.Authz.Resolve(ctx, ident, &scope); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	anchor, err := h.Lodges.GetByID(ctx, id)
	if err != nil {
		if err == lodgestore.ErrNotFound {
			respond.Error(w, h.Log, faults.New(faults.NotFound, "lodge not found"))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}
	closure, err := h.Lodges.DistrictClosure(ctx, anchor)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"anchor": anchor.ID.Hex(),
		"lodges": closure,
	})
}

func toResponse(l *models.Lodge) lodgeResponse {
	out := lodgeResponse{
		ID:       l.ID.Hex(),
		Name:     l.Name,
		Location: l.Location,
		IsActive: l.IsActive,
	}
	if l.District != nil {
		out.District = l.District.Hex()
	}
	if l.ParentLodge != nil {
		out.ParentLodge = l.ParentLodge.Hex()
	}
	return out
}
