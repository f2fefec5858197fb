// internal/domain/models/identity.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the canonical, de-duplicated representation of a person.
//
// NOTE:
//   - Email is stored lowercase and is unique across the collection.
//   - Lodges always contains PrimaryLodge when PrimaryLodge is set.
//   - Role is one of the upper-case values in the roles package.
type Identity struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	Name         string             `bson:"name" json:"name"`
	FirstName    string             `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName     string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Role         string             `bson:"role" json:"role"`
	Status       string             `bson:"status" json:"status"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address      string             `bson:"address,omitempty" json:"address,omitempty"`

	PrimaryLodge       *primitive.ObjectID  `bson:"primary_lodge,omitempty" json:"primary_lodge,omitempty"`
	Lodges             []primitive.ObjectID `bson:"lodges" json:"lodges"`
	LodgeMemberships   []LodgeMembership    `bson:"lodge_memberships,omitempty" json:"lodge_memberships,omitempty"`
	AdministeredLodges []primitive.ObjectID `bson:"administered_lodges,omitempty" json:"administered_lodges,omitempty"`

	MemberSince time.Time  `bson:"member_since" json:"member_since"`
	LastLogin   *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// LodgeMembership is one detailed membership entry on an Identity.
type LodgeMembership struct {
	Lodge     primitive.ObjectID `bson:"lodge" json:"lodge"`
	Position  string             `bson:"position,omitempty" json:"position,omitempty"`
	StartDate time.Time          `bson:"start_date" json:"start_date"`
	EndDate   *time.Time         `bson:"end_date,omitempty" json:"end_date,omitempty"`
	IsActive  bool               `bson:"is_active" json:"is_active"`
}

// HasLodge reports whether the identity references the lodge through any of
// the three places membership has historically been recorded: primary lodge,
// the lodges array, or the detailed membership list.
func (i *Identity) HasLodge(lodgeID primitive.ObjectID) bool {
	if i.PrimaryLodge != nil && *i.PrimaryLodge == lodgeID {
		return true
	}
	for _, id := range i.Lodges {
		if id == lodgeID {
			return true
		}
	}
	for _, m := range i.LodgeMemberships {
		if m.Lodge == lodgeID {
			return true
		}
	}
	return false
}

// Administers reports whether the identity's own record grants it admin
// authority over the lodge (primary lodge or administered_lodges entry).
// Explicit grant documents are checked separately by the resolver.
func (i *Identity) Administers(lodgeID primitive.ObjectID) bool {
	if i.PrimaryLodge != nil && *i.PrimaryLodge == lodgeID {
		return true
	}
	for _, id := range i.AdministeredLodges {
		if id == lodgeID {
			return true
		}
	}
	return false
}
