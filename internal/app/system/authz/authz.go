// Package authz computes a caller's effective permissions.
//
// Authorization rules, in precedence order:
//   - SYSTEM_ADMIN: system-wide; bypasses per-lodge grant checks
//   - DISTRICT_ADMIN: scoped to their own district closure; bypasses per-lodge grants
//   - LODGE_ADMIN: a requested lodge is granted by ANY of an explicit active
//     grant record, the identity's primary lodge, or administered_lodges;
//     grants were historically recorded in more than one place and any one
//     is sufficient
//   - MEMBER: limited to the identity's own lodges; no administrative scope
package authz

import (
	"context"

	grantstore "github.com/dalemusser/lodgehub/internal/app/store/admingrants"
	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EffectivePermission is what collaborating endpoints filter their data by.
type EffectivePermission struct {
	Role            string               `json:"role"`
	AllowedLodgeIDs []primitive.ObjectID `json:"allowed_lodge_ids"`
	IsSystemWide    bool                 `json:"is_system_wide"`
}

// Allows reports whether the permission covers the given lodge.
func (p EffectivePermission) Allows(lodgeID primitive.ObjectID) bool {
	if p.IsSystemWide {
		return true
	}
	for _, id := range p.AllowedLodgeIDs {
		if id == lodgeID {
			return true
		}
	}
	return false
}

var (
	// ErrScopeNotFound is returned when the requested lodge does not exist.
	ErrScopeNotFound = faults.New(faults.NotFound, "requested scope not found")
	// ErrForbidden is returned when no rule grants access.
	ErrForbidden = faults.New(faults.Authorization, "role or scope insufficient")
)

type Resolver struct {
	lodges *lodgestore.Store
	grants *grantstore.Store
}

func New(lodges *lodgestore.Store, grants *grantstore.Store) *Resolver {
	return &Resolver{lodges: lodges, grants: grants}
}

// Resolve computes the identity's effective permission, optionally checked
// against a requested lodge scope. With a requested scope the result is
// either a permission that allows that scope or an error; with no scope the
// result describes everything the identity may act on.
func (r *Resolver) Resolve(ctx context.Context, ident *models.Identity, requestedScope *primitive.ObjectID) (EffectivePermission, error) {
	if requestedScope != nil {
		if _, err := r.lodges.GetByID(ctx, *requestedScope); err != nil {
			if err == lodgestore.ErrNotFound {
				return EffectivePermission{}, ErrScopeNotFound
			}
			return EffectivePermission{}, err
		}
	}

	role := roles.Normalize(ident.Role)
	switch role {
	case roles.SystemAdmin:
		return EffectivePermission{Role: role, IsSystemWide: true}, nil

	case roles.DistrictAdmin:
		perm := EffectivePermission{Role: role}
		if ident.PrimaryLodge != nil {
			closure, err := r.districtClosure(ctx, *ident.PrimaryLodge)
			if err != nil {
				return EffectivePermission{}, err
			}
			perm.AllowedLodgeIDs = closure
		}
		if requestedScope != nil && !perm.Allows(*requestedScope) {
			return EffectivePermission{}, ErrForbidden
		}
		return perm, nil

	case roles.LodgeAdmin:
		perm := EffectivePermission{Role: role, AllowedLodgeIDs: adminScope(ident)}
		if requestedScope == nil {
			return perm, nil
		}
		if perm.Allows(*requestedScope) {
			return perm, nil
		}
		// Third path: an explicit grant document for this (identity, lodge).
		granted, err := r.grants.HasActiveGrant(ctx, ident.ID, *requestedScope)
		if err != nil {
			return EffectivePermission{}, err
		}
		if granted {
			perm.AllowedLodgeIDs = append(perm.AllowedLodgeIDs, *requestedScope)
			return perm, nil
		}
		return EffectivePermission{}, ErrForbidden

	default: // MEMBER
		perm := EffectivePermission{Role: roles.Member, AllowedLodgeIDs: ident.Lodges}
		if requestedScope != nil && !ident.HasLodge(*requestedScope) {
			return EffectivePermission{}, ErrForbidden
		}
		return perm, nil
	}
}

// CanMutateResource applies the resource-ownership overlay for mutate
// operations: the caller must have authored the resource unless their role
// outranks the admin tier of the resource's scope.
func CanMutateResource(ident *models.Identity, createdBy primitive.ObjectID, scopeTier string) bool {
	if ident.ID == createdBy {
		return true
	}
	return roles.Outranks(ident.Role, scopeTier)
}

// adminScope is the lodge-admin authority set: administered_lodges plus the
// primary lodge.
func adminScope(ident *models.Identity) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ident.AdministeredLodges)+1)
	var out []primitive.ObjectID
	if ident.PrimaryLodge != nil {
		seen[*ident.PrimaryLodge] = true
		out = append(out, *ident.PrimaryLodge)
	}
	for _, id := range ident.AdministeredLodges {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (r *Resolver) districtClosure(ctx context.Context, anchorID primitive.ObjectID) ([]primitive.ObjectID, error) {
	anchor, err := r.lodges.GetByID(ctx, anchorID)
	if err != nil {
		if err == lodgestore.ErrNotFound {
			// Dangling primary lodge reference: no closure, not a fault.
			return nil, nil
		}
		return nil, err
	}
	return r.lodges.DistrictClosure(ctx, anchor)
}
