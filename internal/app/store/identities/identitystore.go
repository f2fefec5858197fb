// internal/app/store/identities/identitystore.go
package identitystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/lodgehub/internal/app/system/normalize"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/app/system/status"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection is the canonical identity collection name.
const Collection = "identities"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

var (
	// ErrDuplicateEmail is returned when an identity with this email already exists.
	ErrDuplicateEmail = errors.New("an identity with this email already exists")
	errBadRole        = errors.New(`role must be "SYSTEM_ADMIN"|"DISTRICT_ADMIN"|"LODGE_ADMIN"|"MEMBER"`)
	errBadStatus      = errors.New(`status must be "active"|"inactive"|"pending"`)
)

// GetByID loads an identity by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Identity, error) {
	var ident models.Identity
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// GetByEmail looks up an identity by case-insensitive email.
// Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	var ident models.Identity
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// Create inserts a new identity after normalizing & validating fields.
// The lodges array is extended to contain the primary lodge when set.
func (s *Store) Create(ctx context.Context, ident models.Identity) (models.Identity, error) {
	ident.ID = primitive.NewObjectID()
	ident.Email = normalize.Email(ident.Email)
	ident.Name = normalize.Name(ident.Name)
	if ident.Status == "" {
		ident.Status = status.Active
	}
	ident.Status = normalize.Status(ident.Status)

	if !roles.IsValid(ident.Role) {
		return models.Identity{}, errBadRole
	}
	if !status.IsValid(ident.Status) {
		return models.Identity{}, errBadStatus
	}

	ident.Lodges = withPrimary(ident.Lodges, ident.PrimaryLodge)

	now := time.Now().UTC()
	if ident.MemberSince.IsZero() {
		ident.MemberSince = now
	}
	ident.CreatedAt = now
	ident.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, ident); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Identity{}, ErrDuplicateEmail
		}
		return models.Identity{}, err
	}
	return ident, nil
}

// UpdateRole sets an identity's role. The role must be canonical.
func (s *Store) UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !roles.IsValid(role) {
		return errBadRole
	}
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"role":       role,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// SetLodgeScope points an identity at a single lodge: primary_lodge is set and
// lodges is replaced with just that lodge. Used by the transfer protocol's
// membership auto-repair.
func (s *Store) SetLodgeScope(ctx context.Context, id, lodgeID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"primary_lodge": lodgeID,
		"lodges":        []primitive.ObjectID{lodgeID},
		"updated_at":    time.Now().UTC(),
	}})
	return err
}

// TouchLastLogin records a successful authentication.
func (s *Store) TouchLastLogin(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"last_login": now,
		"updated_at": now,
	}})
	return err
}

// CountByRole returns the number of identities holding the given role.
func (s *Store) CountByRole(ctx context.Context, role string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"role": role})
}

// Count returns the total number of canonical identities.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// ReplaceAll drops the collection and bulk-inserts the given identities.
// This is the reconciliation engine's full-rebuild step; it is not safe to
// run concurrently with live traffic.
func (s *Store) ReplaceAll(ctx context.Context, idents []models.Identity) (int64, error) {
	if err := s.c.Drop(ctx); err != nil {
		return 0, err
	}
	if len(idents) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, 0, len(idents))
	for _, ident := range idents {
		docs = append(docs, ident)
	}
	res, err := s.c.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return int64(len(res.InsertedIDs)), nil
}

// Drop removes the canonical collection entirely (rollback path).
func (s *Store) Drop(ctx context.Context) error {
	return s.c.Drop(ctx)
}

// withPrimary returns lodges extended to include primary, deduplicated.
func withPrimary(lodges []primitive.ObjectID, primary *primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(lodges)+1)
	out := make([]primitive.ObjectID, 0, len(lodges)+1)
	if primary != nil && !seen[*primary] {
		seen[*primary] = true
		out = append(out, *primary)
	}
	for _, id := range lodges {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
