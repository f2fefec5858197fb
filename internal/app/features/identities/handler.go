package identities

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
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
	"golang.org/x/crypto/bcrypt"
)

// Handler serves identity registration and lookup.
type Handler struct {
	Dir       *directory.Directory
	Canonical *identitystore.Store
	Authz     *authz.Resolver
	Log       *zap.Logger
}

func NewHandler(dir *directory.Directory, canonical *identitystore.Store, resolver *authz.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		Dir:       dir,
		Canonical: canonical,
		Authz:     resolver,
		Log:       logger,
	}
}

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	PrimaryLodge string `json:"primary_lodge"`
}

type identityResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	PrimaryLodge string `json:"primary_lodge,omitempty"`
}

// Register handles POST /identities. Self-registration always produces a
// MEMBER; elevated roles come only from the transfer protocol.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		respond.Error(w, h.Log, faults.New(faults.Validation, "email and password are required"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ident := models.Identity{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         sanitize.Text(req.Name),
		FirstName:    sanitize.Text(req.FirstName),
		LastName:     sanitize.Text(req.LastName),
		Phone:        sanitize.Text(req.Phone),
		Address:      sanitize.Text(req.Address),
		Role:         roles.Member,
	}
	if req.PrimaryLodge != "" {
		lodgeID, err := primitive.ObjectIDFromHex(req.PrimaryLodge)
		if err != nil {
			respond.Error(w, h.Log, faults.New(faults.Validation, "malformed primary_lodge id"))
			return
		}
		ident.PrimaryLodge = &lodgeID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := h.Canonical.Create(ctx, ident)
	if err != nil {
		if err == identitystore.ErrDuplicateEmail {
			respond.Error(w, h.Log, faults.New(faults.Conflict, err.Error()))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}

	h.Log.Info("identity registered",
		zap.String("identity", created.ID.Hex()),
		zap.String("email", created.Email))
	respond.JSON(w, http.StatusCreated, toResponse(&created))
}

// Get handles GET /identities/{id}. Callers may read themselves; otherwise
// their effective permission must cover the target's primary lodge.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, faults.New(faults.Authentication, "authentication required"))
		return
	}

	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed identity id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	target, err := h.Dir.FindByID(ctx, id)
	if err != nil {
		if err == directory.ErrNotFound {
			respond.Error(w, h.Log, faults.New(faults.NotFound, "identity not found"))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}

	if caller.ID != target.ID {
		ident, err := h.Dir.FindByID(ctx, caller.ID)
		if err != nil {
			if err == directory.ErrNotFound {
				respond.Error(w, h.Log, faults.New(faults.Authentication, "caller identity no longer exists"))
				return
			}
			respond.Error(w, h.Log, err)
			return
		}
		perm, err := h.Authz.Resolve(ctx, ident, nil)
		if err != nil {
			respond.Error(w, h.Log, err)
			return
		}
		if !perm.IsSystemWide &&
			(target.PrimaryLodge == nil || !perm.Allows(*target.PrimaryLodge)) {
			respond.Error(w, h.Log, authz.ErrForbidden)
			return
		}
	}

	respond.JSON(w, http.StatusOK, toResponse(target))
}

func toResponse(ident *models.Identity) identityResponse {
	out := identityResponse{
		ID:        ident.ID.Hex(),
		Email:     ident.Email,
		Name:      ident.Name,
		FirstName: ident.FirstName,
		LastName:  ident.LastName,
		Role:      ident.Role,
		Status:    ident.Status,
		Phone:     ident.Phone,
		Address:   ident.Address,
	}
	if ident.PrimaryLodge != nil {
		out.PrimaryLodge = ident.PrimaryLodge.Hex()
	}
	return out
}
