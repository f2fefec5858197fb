// internal/app/store/directory/directory.go
package directory

// Directory is the single lookup surface for identities during the
// incremental migration. It tries, in order: the canonical store, the legacy
// account store, the legacy profile store. First hit wins. Endpoints that
// still hold legacy ids and endpoints already on canonical ids both stay
// correct without duplicating lookup logic.
//
// Directory is read-only. Writes go through the owning stores.

import (
	"context"
	"errors"

	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
	legacystore "github.com/dalemusser/lodgehub/internal/app/store/legacy"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/app/system/status"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound means no store in the chain holds the identity. Storage-layer
// faults are returned as-is and are never folded into ErrNotFound.
var ErrNotFound = errors.New("identity not found")

type Directory struct {
	canonical *identitystore.Store
	legacy    *legacystore.Stores
}

func New(canonical *identitystore.Store, legacy *legacystore.Stores) *Directory {
	return &Directory{canonical: canonical, legacy: legacy}
}

// FindByEmail resolves an identity by email through the fallback chain.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	ident, err := d.canonical.GetByEmail(ctx, email)
	if err == nil {
		return ident, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	acct, err := d.legacy.Accounts.GetByEmail(ctx, email)
	if err == nil {
		return FromAccount(acct), nil
	}
	if err != legacystore.ErrNotFound {
		return nil, err
	}

	prof, err := d.legacy.Profiles.GetByEmail(ctx, email)
	if err == nil {
		return FromProfile(prof), nil
	}
	if err != legacystore.ErrNotFound {
		return nil, err
	}
	return nil, ErrNotFound
}

// FindByID resolves an identity by id through the fallback chain. Legacy
// records keep their original _id, so ids minted before the migration still
// resolve.
func (d *Directory) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Identity, error) {
	ident, err := d.canonical.GetByID(ctx, id)
	if err == nil {
		return ident, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	acct, err := d.legacy.Accounts.GetByID(ctx, id)
	if err == nil {
		return FromAccount(acct), nil
	}
	if err != legacystore.ErrNotFound {
		return nil, err
	}

	prof, err := d.legacy.Profiles.GetByID(ctx, id)
	if err == nil {
		return FromProfile(prof), nil
	}
	if err != legacystore.ErrNotFound {
		return nil, err
	}
	return nil, ErrNotFound
}

// FromAccount shapes a legacy account record as a canonical identity.
// The free-text role is normalized; the plaintext-free credential hash is
// carried over as-is.
func FromAccount(a *models.LegacyAccount) *models.Identity {
	st := a.Status
	if st == "" {
		st = status.Active
	}
	return &models.Identity{
		ID:           a.ID,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Name:         a.Name,
		Role:         roles.Normalize(a.Role),
		Status:       st,
		PrimaryLodge: a.PrimaryLodge,
		Lodges:       unionLodges(a.PrimaryLodge, a.Lodges, nil),
		LastLogin:    a.LastLogin,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.CreatedAt,
	}
}

// FromProfile shapes a legacy profile record as a canonical identity.
// A plaintext password is never exposed here; profiles resolved through the
// chain have no usable credential until reconciliation hashes them.
func FromProfile(p *models.LegacyProfile) *models.Identity {
	st := p.Status
	if st == "" {
		st = status.Active
	}
	name := p.Name
	if name == "" {
		name = joinName(p.FirstName, p.LastName)
	}
	return &models.Identity{
		ID:               p.ID,
		Email:            p.Email,
		Name:             name,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Role:             roles.Normalize(p.Role),
		Status:           st,
		Phone:            p.Phone,
		Address:          p.Address,
		PrimaryLodge:     p.PrimaryLodge,
		Lodges:           unionLodges(p.PrimaryLodge, p.Lodges, p.LodgeMemberships),
		LodgeMemberships: p.LodgeMemberships,
		MemberSince:      p.MemberSince,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.CreatedAt,
	}
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

// unionLodges merges the primary lodge, the lodges array, and membership-list
// lodge refs into one deduplicated slice, primary first.
func unionLodges(primary *primitive.ObjectID, lodges []primitive.ObjectID, memberships []models.LodgeMembership) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool)
	var out []primitive.ObjectID
	add := func(id primitive.ObjectID) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if primary != nil {
		add(*primary)
	}
	for _, id := range lodges {
		add(id)
	}
	for _, m := range memberships {
		add(m.Lodge)
	}
	return out
}
