package login

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/respond"
	"github.com/dalemusser/lodgehub/internal/app/system/status"
	"github.com/dalemusser/lodgehub/internal/app/system/timeouts"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler holds dependencies for the authentication endpoint.
type Handler struct {
	Dir       *directory.Directory
	Canonical *identitystore.Store
	Tokens    *auth.TokenService
	Log       *zap.Logger
}

func NewHandler(dir *directory.Directory, canonical *identitystore.Store, tokens *auth.TokenService, logger *zap.Logger) *Handler {
	return &Handler{
		Dir:       dir,
		Canonical: canonical,
		Tokens:    tokens,
		Log:       logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string          `json:"token"`
	Identity identitySummary `json:"identity"`
}

type identitySummary struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// Authenticate handles POST /login. The identity is resolved through the
// directory chain, so accounts that exist only in a legacy store can still
// sign in.
func (h *Handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		respond.Error(w, h.Log, faults.New(faults.Validation, "email and password are required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ident, err := h.Dir.FindByEmail(ctx, req.Email)
	if err != nil {
		if err == directory.ErrNotFound {
			respond.Error(w, h.Log, faults.New(faults.Authentication, "invalid email or password"))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}

	if ident.Status != status.Active {
		respond.Error(w, h.Log, faults.New(faults.Authentication, "account is not active"))
		return
	}
	// Profile-only identities carry no hash until reconciliation runs.
	if ident.PasswordHash == "" {
		respond.Error(w, h.Log, faults.New(faults.Authentication, "account has no usable credential"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, h.Log, faults.New(faults.Authentication, "invalid email or password"))
		return
	}

	token, err := h.Tokens.Issue(ident, ident.PrimaryLodge)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	// Best effort; a failed timestamp write must not fail the login.
	if err := h.Canonical.TouchLastLogin(ctx, ident.ID); err != nil {
		h.Log.Warn("recording last login failed",
			zap.String("identity", ident.ID.Hex()),
			zap.Error(err))
	}

	respond.JSON(w, http.StatusOK, loginResponse{
		Token:    token,
		Identity: summarize(ident),
	})
}

func summarize(ident *models.Identity) identitySummary {
	return identitySummary{
		ID:     ident.ID.Hex(),
		Email:  ident.Email,
		Name:   ident.Name,
		Role:   ident.Role,
		Status: ident.Status,
	}
}
