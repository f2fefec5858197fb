// internal/app/transfer/transfer.go
package transfer

// The privilege transfer protocol moves a scoped admin role from its current
// holder to a candidate in five phases:
//
//	Validate → ReconcileDualPresence → ValidateMembership → Apply → VerifyReadBack
//
// Apply performs independent writes across both legacy-shaped stores with no
// cross-record transaction. A failure mid-Apply leaves divergent records;
// VerifyReadBack observes and reports that state to the caller, it never
// rolls back or silently normalizes. Callers must treat a partial result as
// "state unknown, verify manually".

import (
	"context"
	"fmt"

	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
	legacystore "github.com/dalemusser/lodgehub/internal/app/store/legacy"
	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Request describes one transfer. HolderID may be zero, in which case the
// requester is the current holder (the common case: an admin handing off
// their own role).
type Request struct {
	Requester   *models.Identity
	HolderID    primitive.ObjectID
	CandidateID primitive.ObjectID
	ScopeID     primitive.ObjectID
}

// Participant reports one side of the transfer as observed at read-back.
type Participant struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	AccountRole string             `json:"account_role"`
	ProfileRole string             `json:"profile_role"`
}

// Result is what the caller receives. When Partial is true the roles shown
// are whatever VerifyReadBack observed, which may be an inconsistent
// intermediate state.
type Result struct {
	TransferID string      `json:"transfer_id"`
	Tier       string      `json:"tier"`
	Holder     Participant `json:"holder"`
	Candidate  Participant `json:"candidate"`
	Repaired   bool        `json:"membership_repaired"`
	Partial    bool        `json:"partial"`
	Warning    string      `json:"warning,omitempty"`
}

type Protocol struct {
	dir       *directory.Directory
	canonical *identitystore.Store
	legacy    *legacystore.Stores
	lodges    *lodgestore.Store
	log       *zap.Logger
}

func New(dir *directory.Directory, canonical *identitystore.Store, legacy *legacystore.Stores, lodges *lodgestore.Store, logger *zap.Logger) *Protocol {
	return &Protocol{
		dir:       dir,
		canonical: canonical,
		legacy:    legacy,
		lodges:    lodges,
		log:       logger,
	}
}

// Transfer runs the full protocol. Any error before Apply means nothing was
// written; an error or partial flag after Apply means the caller must verify.
func (p *Protocol) Transfer(ctx context.Context, req Request) (*Result, error) {
	transferID := uuid.NewString()
	log := p.log.With(zap.String("transfer_id", transferID))

	// ---- Phase 1: Validate (no writes on any failure) ----
	if _, err := p.lodges.GetByID(ctx, req.ScopeID); err != nil {
		if err == lodgestore.ErrNotFound {
			return nil, faults.New(faults.NotFound, "target scope not found")
		}
		return nil, err
	}

	holder := req.Requester
	if !req.HolderID.IsZero() && req.HolderID != req.Requester.ID {
		var err error
		holder, err = p.dir.FindByID(ctx, req.HolderID)
		if err != nil {
			if err == directory.ErrNotFound {
				return nil, faults.New(faults.NotFound, "current holder not found")
			}
			return nil, err
		}
	}

	tier := roles.Normalize(holder.Role)
	if tier == roles.Member {
		return nil, faults.New(faults.Validation, "current holder has no admin tier to transfer")
	}
	if !roles.OutranksOrEqual(req.Requester.Role, tier) {
		return nil, faults.New(faults.Authorization, "requester role does not outrank the transferred tier")
	}

	candidate, err := p.dir.FindByID(ctx, req.CandidateID)
	if err != nil {
		if err == directory.ErrNotFound {
			return nil, faults.New(faults.NotFound, "candidate not found")
		}
		return nil, err
	}
	if roles.Normalize(candidate.Role) == tier {
		return nil, faults.New(faults.Conflict, "candidate already holds the target tier")
	}
	if !holder.HasLodge(req.ScopeID) {
		return nil, faults.New(faults.Validation, "current holder does not belong to the target scope")
	}

	// Advisory only: demoting the last SYSTEM_ADMIN violates the
	// at-least-one invariant, but the operator gets a warning, not a refusal.
	if tier == roles.SystemAdmin {
		if n, err := p.canonical.CountByRole(ctx, roles.SystemAdmin); err == nil && n <= 1 {
			log.Warn("transfer demotes the last SYSTEM_ADMIN; the system will have no top-level admin until the candidate write lands")
		}
	}

	// ---- Phase 2: ReconcileDualPresence ----
	if err := p.ensureDualPresence(ctx, holder); err != nil {
		return nil, err
	}
	if err := p.ensureDualPresence(ctx, candidate); err != nil {
		return nil, err
	}

	// ---- Phase 3: ValidateMembership (auto-repair) ----
	repaired := false
	if !candidate.HasLodge(req.ScopeID) {
		log.Info("candidate lacks target scope membership; repairing",
			zap.String("candidate", candidate.ID.Hex()),
			zap.String("scope", req.ScopeID.Hex()))
		if err := p.repairMembership(ctx, candidate, req.ScopeID); err != nil {
			return nil, err
		}
		repaired = true
	}

	// ---- Phase 4: Apply (independent writes, no transaction) ----
	var writeFailures []string
	apply := func(desc string, err error) {
		if err != nil {
			writeFailures = append(writeFailures, fmt.Sprintf("%s: %v", desc, err))
			log.Error("transfer write failed", zap.String("write", desc), zap.Error(err))
		}
	}
	apply("holder account role", p.legacy.Accounts.SetRoleByEmail(ctx, holder.Email, roles.Member))
	apply("holder profile role", p.legacy.Profiles.SetRoleByEmail(ctx, holder.Email, roles.Member))
	apply("candidate account role", p.legacy.Accounts.SetRoleByEmail(ctx, candidate.Email, tier))
	apply("candidate profile role", p.legacy.Profiles.SetRoleByEmail(ctx, candidate.Email, tier))

	// Keep the canonical store in step where records exist; the resolver
	// reads canonical-first, so a transfer must be visible there too.
	p.syncCanonicalRole(ctx, holder.ID, roles.Member, log)
	p.syncCanonicalRole(ctx, candidate.ID, tier, log)

	// ---- Phase 5: VerifyReadBack (observe, never remediate) ----
	res := &Result{
		TransferID: transferID,
		Tier:       tier,
		Holder:     p.readBack(ctx, holder),
		Candidate:  p.readBack(ctx, candidate),
		Repaired:   repaired,
	}
	if len(writeFailures) > 0 {
		res.Partial = true
		res.Warning = "partial transfer, verify manually: " + fmt.Sprint(writeFailures)
		return res, nil
	}
	if res.Holder.AccountRole != roles.Member || res.Holder.ProfileRole != roles.Member ||
		res.Candidate.AccountRole != tier || res.Candidate.ProfileRole != tier {
		res.Partial = true
		res.Warning = "partial transfer, verify manually: read-back shows divergent representations"
	}
	return res, nil
}

// ensureDualPresence synthesizes whichever legacy-shaped record is missing
// for the identity, so the Apply phase has both representations to write.
func (p *Protocol) ensureDualPresence(ctx context.Context, ident *models.Identity) error {
	_, err := p.legacy.Accounts.GetByEmail(ctx, ident.Email)
	if err == legacystore.ErrNotFound {
		_, err = p.legacy.Accounts.Insert(ctx, models.LegacyAccount{
			Email:        ident.Email,
			PasswordHash: ident.PasswordHash,
			Name:         ident.Name,
			Role:         ident.Role,
			Status:       ident.Status,
			PrimaryLodge: ident.PrimaryLodge,
			Lodges:       ident.Lodges,
		})
	}
	if err != nil {
		return err
	}

	_, err = p.legacy.Profiles.GetByEmail(ctx, ident.Email)
	if err == legacystore.ErrNotFound {
		_, err = p.legacy.Profiles.Insert(ctx, models.LegacyProfile{
			Email:            ident.Email,
			Name:             ident.Name,
			FirstName:        ident.FirstName,
			LastName:         ident.LastName,
			Role:             ident.Role,
			Status:           ident.Status,
			Phone:            ident.Phone,
			Address:          ident.Address,
			PrimaryLodge:     ident.PrimaryLodge,
			Lodges:           ident.Lodges,
			LodgeMemberships: ident.LodgeMemberships,
			MemberSince:      ident.MemberSince,
		})
	}
	return err
}

// repairMembership points the candidate at the target scope in every
// representation that holds them.
func (p *Protocol) repairMembership(ctx context.Context, ident *models.Identity, scopeID primitive.ObjectID) error {
	if _, err := p.canonical.GetByID(ctx, ident.ID); err == nil {
		if err := p.canonical.SetLodgeScope(ctx, ident.ID, scopeID); err != nil {
			return err
		}
	} else if err != mongo.ErrNoDocuments {
		return err
	}
	if err := p.legacy.Accounts.SetLodgeScopeByEmail(ctx, ident.Email, scopeID); err != nil {
		return err
	}
	if err := p.legacy.Profiles.SetLodgeScopeByEmail(ctx, ident.Email, scopeID); err != nil {
		return err
	}
	scope := scopeID
	ident.PrimaryLodge = &scope
	ident.Lodges = []primitive.ObjectID{scopeID}
	return nil
}

func (p *Protocol) syncCanonicalRole(ctx context.Context, id primitive.ObjectID, role string, log *zap.Logger) {
	if _, err := p.canonical.GetByID(ctx, id); err != nil {
		if err != mongo.ErrNoDocuments {
			log.Error("canonical lookup during role sync failed", zap.Error(err))
		}
		return
	}
	if err := p.canonical.UpdateRole(ctx, id, role); err != nil {
		log.Error("canonical role sync failed",
			zap.String("identity", id.Hex()),
			zap.Error(err))
	}
}

// readBack re-reads one identity from both legacy stores and reports the
// roles observed. A missing representation reads as an empty role.
func (p *Protocol) readBack(ctx context.Context, ident *models.Identity) Participant {
	out := Participant{ID: ident.ID, Name: ident.Name}
	if a, err := p.legacy.Accounts.GetByEmail(ctx, ident.Email); err == nil {
		out.AccountRole = roles.Normalize(a.Role)
		if a.Name != "" {
			out.Name = a.Name
		}
	}
	if pr, err := p.legacy.Profiles.GetByEmail(ctx, ident.Email); err == nil {
		out.ProfileRole = roles.Normalize(pr.Role)
	}
	return out
}
