// internal/app/store/admingrants/grantstore.go
package grantstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/lodgehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the per-lodge admin grant collection name.
const Collection = "lodge_admin_grants"

// ErrDuplicateGrant is returned when a grant for (identity, lodge) already exists.
var ErrDuplicateGrant = errors.New("an admin grant for this identity and lodge already exists")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Grant records an explicit per-lodge admin grant.
func (s *Store) Grant(ctx context.Context, identityID, lodgeID primitive.ObjectID) (models.AdminGrant, error) {
	g := models.AdminGrant{
		ID:         primitive.NewObjectID(),
		IdentityID: identityID,
		LodgeID:    lodgeID,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		if wafflemongo.IsDup(err) {
			return models.AdminGrant{}, ErrDuplicateGrant
		}
		return models.AdminGrant{}, err
	}
	return g, nil
}

// Revoke deactivates a grant without deleting the history.
func (s *Store) Revoke(ctx context.Context, identityID, lodgeID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"identity_id": identityID, "lodge_id": lodgeID},
		bson.M{"$set": bson.M{"is_active": false}})
	return err
}

// HasActiveGrant reports whether an active grant exists for (identity, lodge).
func (s *Store) HasActiveGrant(ctx context.Context, identityID, lodgeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"identity_id": identityID,
		"lodge_id":    lodgeID,
		"is_active":   true,
	}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}
