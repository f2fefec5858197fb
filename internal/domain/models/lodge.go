// internal/domain/models/lodge.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lodge includes a case/diacritic-insensitive name field for search/sort.
//
// Hierarchy is expressed through two fields that both occur in live data:
// District groups lodges that share a district value, and ParentLodge points
// at a district anchor lodge directly. Whether the two are synonyms, and how
// a lodge with conflicting values should be treated, is pending product
// clarification; closure queries union over both rather than preferring one.
type Lodge struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Location    string              `bson:"location,omitempty" json:"location,omitempty"`
	District    *primitive.ObjectID `bson:"district,omitempty" json:"district,omitempty"`
	ParentLodge *primitive.ObjectID `bson:"parent_lodge,omitempty" json:"parent_lodge,omitempty"`
	IsActive    bool                `bson:"is_active" json:"is_active"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// AdminGrant is an explicit per-lodge admin grant for one identity.
// Grants were historically recorded here in addition to the identity's own
// administered_lodges array; either record is sufficient for authorization.
type AdminGrant struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IdentityID primitive.ObjectID `bson:"identity_id" json:"identity_id"`
	LodgeID    primitive.ObjectID `bson:"lodge_id" json:"lodge_id"`
	IsActive   bool               `bson:"is_active" json:"is_active"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
