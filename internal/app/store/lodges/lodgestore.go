// internal/app/store/lodges/lodgestore.go
package lodgestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/lodgehub/internal/app/system/normalize"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the lodge collection name.
const Collection = "lodges"

// ErrNotFound is returned when a lodge lookup matches nothing.
var ErrNotFound = errors.New("lodge not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts a new lodge after normalizing the name.
func (s *Store) Create(ctx context.Context, l models.Lodge) (models.Lodge, error) {
	l.ID = primitive.NewObjectID()
	l.Name = normalize.Name(l.Name)
	l.NameCI = text.Fold(l.Name)

	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.Lodge{}, err
	}
	return l, nil
}

// GetByID loads a lodge by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lodge, error) {
	var l models.Lodge
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// NameByID returns just the lodge display name. Token verification uses this
// on every request, so the query projects the single field it needs.
func (s *Store) NameByID(ctx context.Context, id primitive.ObjectID) (string, error) {
	var l struct {
		Name string `bson:"name"`
	}
	proj := options.FindOne().SetProjection(bson.M{"name": 1})
	err := s.c.FindOne(ctx, bson.M{"_id": id}, proj).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return l.Name, nil
}

// DistrictClosure returns the ids of every lodge in the anchor's jurisdiction:
// the anchor itself, lodges sharing the anchor's district value, and lodges
// whose parent_lodge points at the anchor. The result is deduplicated; the
// anchor is always first.
func (s *Store) DistrictClosure(ctx context.Context, anchor *models.Lodge) ([]primitive.ObjectID, error) {
	or := []bson.M{
		{"parent_lodge": anchor.ID},
	}
	if anchor.District != nil {
		or = append(or, bson.M{"district": *anchor.District})
	}

	cur, err := s.c.Find(ctx, bson.M{"$or": or}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	seen := map[primitive.ObjectID]bool{anchor.ID: true}
	out := []primitive.ObjectID{anchor.ID}
	for cur.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		if !seen[doc.ID] {
			seen[doc.ID] = true
			out = append(out, doc.ID)
		}
	}
	return out, cur.Err()
}
