// internal/domain/models/legacy.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LegacyAccount is the credential-first record shape from the pre-migration
// account store. Role is free text and must be normalized before use.
type LegacyAccount struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email        string               `bson:"email" json:"email"`
	PasswordHash string               `bson:"password_hash,omitempty" json:"-"`
	Name         string               `bson:"name,omitempty" json:"name,omitempty"`
	Role         string               `bson:"role,omitempty" json:"role,omitempty"`
	Status       string               `bson:"status,omitempty" json:"status,omitempty"`
	PrimaryLodge *primitive.ObjectID  `bson:"primary_lodge,omitempty" json:"primary_lodge,omitempty"`
	Lodges       []primitive.ObjectID `bson:"lodges,omitempty" json:"lodges,omitempty"`
	LastLogin    *time.Time           `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time            `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// LegacyProfile is the profile-first record shape from the pre-migration
// member-profile store. Password, when present, is plaintext and is hashed
// during reconciliation. Role is free text.
type LegacyProfile struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email            string               `bson:"email" json:"email"`
	Password         string               `bson:"password,omitempty" json:"-"`
	Name             string               `bson:"name,omitempty" json:"name,omitempty"`
	FirstName        string               `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName         string               `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Role             string               `bson:"role,omitempty" json:"role,omitempty"`
	Status           string               `bson:"status,omitempty" json:"status,omitempty"`
	Phone            string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Address          string               `bson:"address,omitempty" json:"address,omitempty"`
	PrimaryLodge     *primitive.ObjectID  `bson:"primary_lodge,omitempty" json:"primary_lodge,omitempty"`
	Lodges           []primitive.ObjectID `bson:"lodges,omitempty" json:"lodges,omitempty"`
	LodgeMemberships []LodgeMembership    `bson:"lodge_memberships,omitempty" json:"lodge_memberships,omitempty"`
	MemberSince      time.Time            `bson:"member_since,omitempty" json:"member_since,omitempty"`
	CreatedAt        time.Time            `bson:"created_at,omitempty" json:"created_at,omitempty"`
}
