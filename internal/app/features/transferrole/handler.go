package transferrole

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/respond"
	"github.com/dalemusser/lodgehub/internal/app/system/timeouts"
	"github.com/dalemusser/lodgehub/internal/app/transfer"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler exposes the privilege transfer protocol.
type Handler struct {
	Dir      *directory.Directory
	Protocol *transfer.Protocol
	Log      *zap.Logger
}

func NewHandler(dir *directory.Directory, protocol *transfer.Protocol, logger *zap.Logger) *Handler {
	return &Handler{
		Dir:      dir,
		Protocol: protocol,
		Log:      logger,
	}
}

type transferRequest struct {
	HolderID    string `json:"holder_id,omitempty"`
	CandidateID string `json:"candidate_id"`
	ScopeID     string `json:"scope_id"`
}

// Transfer handles POST /transfers. holder_id is optional; omitted means the
// caller is handing off their own role.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, faults.New(faults.Authentication, "authentication required"))
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed request body"))
		return
	}

	candidateID, err := primitive.ObjectIDFromHex(req.CandidateID)
	if err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed candidate_id"))
		return
	}
	scopeID, err := primitive.ObjectIDFromHex(req.ScopeID)
	if err != nil {
		respond.Error(w, h.Log, faults.New(faults.Validation, "malformed scope_id"))
		return
	}
	var holderID primitive.ObjectID
	if req.HolderID != "" {
		holderID, err = primitive.ObjectIDFromHex(req.HolderID)
		if err != nil {
			respond.Error(w, h.Log, faults.New(faults.Validation, "malformed holder_id"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	requester, err := h.Dir.FindByID(ctx, caller.ID)
	if err != nil {
		if err == directory.ErrNotFound {
			respond.Error(w, h.Log, faults.New(faults.Authentication, "caller identity no longer exists"))
			return
		}
		respond.Error(w, h.Log, err)
		return
	}

	result, err := h.Protocol.Transfer(ctx, transfer.Request{
		Requester:   requester,
		HolderID:    holderID,
		CandidateID: candidateID,
		ScopeID:     scopeID,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	// A partial transfer is still a 200: the writes that landed are real and
	// the caller needs the read-back detail, not a rolled-up error.
	respond.JSON(w, http.StatusOK, result)
}
