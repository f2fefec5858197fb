// internal/app/store/legacy/legacystore.go
package legacystore

// The two pre-migration record stores. During incremental rollout both may
// still hold live records; the reconciliation engine merges them into the
// canonical collection and the transfer protocol keeps both shapes in sync
// until the chain is retired.

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/lodgehub/internal/app/system/normalize"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names for the legacy stores.
const (
	AccountsCollection = "legacy_accounts"
	ProfilesCollection = "legacy_member_profiles"
)

// ErrNotFound is returned for lookups with no matching legacy record.
var ErrNotFound = errors.New("legacy record not found")

// Stores bundles both legacy collections.
type Stores struct {
	Accounts *AccountStore
	Profiles *ProfileStore
}

func New(db *mongo.Database) *Stores {
	return &Stores{
		Accounts: &AccountStore{c: db.Collection(AccountsCollection)},
		Profiles: &ProfileStore{c: db.Collection(ProfilesCollection)},
	}
}

/* -------------------------------------------------------------------------- */
/* Accounts                                                                   */
/* -------------------------------------------------------------------------- */

type AccountStore struct {
	c *mongo.Collection
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*models.LegacyAccount, error) {
	var a models.LegacyAccount
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AccountStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.LegacyAccount, error) {
	var a models.LegacyAccount
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// All streams every account record. Decode failures are reported through the
// malformed callback and skipped so one bad record cannot sink a batch run.
func (s *AccountStore) All(ctx context.Context, malformed func(err error)) ([]models.LegacyAccount, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.LegacyAccount
	for cur.Next(ctx) {
		var a models.LegacyAccount
		if err := cur.Decode(&a); err != nil {
			if malformed != nil {
				malformed(err)
			}
			continue
		}
		out = append(out, a)
	}
	return out, cur.Err()
}

// Insert stores a new account record.
func (s *AccountStore) Insert(ctx context.Context, a models.LegacyAccount) (models.LegacyAccount, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Email = normalize.Email(a.Email)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.LegacyAccount{}, err
	}
	return a, nil
}

// SetRoleByEmail writes a role value into the account-shaped representation.
// Returns ErrNotFound when no account record carries the email.
func (s *AccountStore) SetRoleByEmail(ctx context.Context, email, role string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLodgeScopeByEmail repoints the account-shaped record at a single lodge.
func (s *AccountStore) SetLodgeScopeByEmail(ctx context.Context, email string, lodgeID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": bson.M{
			"primary_lodge": lodgeID,
			"lodges":        []primitive.ObjectID{lodgeID},
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *AccountStore) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

func (s *AccountStore) Drop(ctx context.Context) error {
	return s.c.Drop(ctx)
}

// InsertRaw bulk-inserts raw snapshot documents (rollback restore path).
func (s *AccountStore) InsertRaw(ctx context.Context, docs []interface{}) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	res, err := s.c.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return int64(len(res.InsertedIDs)), nil
}

/* -------------------------------------------------------------------------- */
/* Profiles                                                                   */
/* -------------------------------------------------------------------------- */

type ProfileStore struct {
	c *mongo.Collection
}

func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (*models.LegacyProfile, error) {
	var p models.LegacyProfile
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.LegacyProfile, error) {
	var p models.LegacyProfile
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// All streams every profile record, skipping malformed documents.
func (s *ProfileStore) All(ctx context.Context, malformed func(err error)) ([]models.LegacyProfile, error) {
	cur, err := s.c.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.LegacyProfile
	for cur.Next(ctx) {
		var p models.LegacyProfile
		if err := cur.Decode(&p); err != nil {
			if malformed != nil {
				malformed(err)
			}
			continue
		}
		out = append(out, p)
	}
	return out, cur.Err()
}

func (s *ProfileStore) Insert(ctx context.Context, p models.LegacyProfile) (models.LegacyProfile, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Email = normalize.Email(p.Email)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.LegacyProfile{}, err
	}
	return p, nil
}

// SetRoleByEmail writes a role value into the profile-shaped representation.
func (s *ProfileStore) SetRoleByEmail(ctx context.Context, email, role string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLodgeScopeByEmail repoints the profile-shaped record at a single lodge.
func (s *ProfileStore) SetLodgeScopeByEmail(ctx context.Context, email string, lodgeID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": bson.M{
			"primary_lodge": lodgeID,
			"lodges":        []primitive.ObjectID{lodgeID},
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ProfileStore) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

func (s *ProfileStore) Drop(ctx context.Context) error {
	return s.c.Drop(ctx)
}

func (s *ProfileStore) InsertRaw(ctx context.Context, docs []interface{}) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	res, err := s.c.InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return int64(len(res.InsertedIDs)), nil
}
