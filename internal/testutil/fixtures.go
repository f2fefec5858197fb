package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/lodgehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateLodge creates a test lodge with the given name.
func (f *Fixtures) CreateLodge(ctx context.Context, name string) models.Lodge {
	f.t.Helper()
	return f.insertLodge(ctx, models.Lodge{Name: name})
}

// CreateDistrictLodge creates a lodge tagged with the given district id.
func (f *Fixtures) CreateDistrictLodge(ctx context.Context, name string, district primitive.ObjectID) models.Lodge {
	f.t.Helper()
	return f.insertLodge(ctx, models.Lodge{Name: name, District: &district})
}

// CreateChildLodge creates a lodge whose parent_lodge points at the parent.
func (f *Fixtures) CreateChildLodge(ctx context.Context, name string, parent primitive.ObjectID) models.Lodge {
	f.t.Helper()
	return f.insertLodge(ctx, models.Lodge{Name: name, ParentLodge: &parent})
}

func (f *Fixtures) insertLodge(ctx context.Context, l models.Lodge) models.Lodge {
	f.t.Helper()

	now := time.Now().UTC()
	l.ID = primitive.NewObjectID()
	l.NameCI = text.Fold(l.Name)
	l.IsActive = true
	l.CreatedAt = now
	l.UpdatedAt = now

	if _, err := f.db.Collection("lodges").InsertOne(ctx, l); err != nil {
		f.t.Fatalf("failed to create test lodge: %v", err)
	}
	return l
}

// CreateIdentity creates a canonical identity with the given role and an
// optional primary lodge. The password "secret" is pre-hashed.
func (f *Fixtures) CreateIdentity(ctx context.Context, name, email, role string, lodgeID *primitive.ObjectID) models.Identity {
	f.t.Helper()

	now := time.Now().UTC()
	ident := models.Identity{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: f.HashPassword("secret"),
		Name:         name,
		Role:         role,
		Status:       "active",
		PrimaryLodge: lodgeID,
		MemberSince:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if lodgeID != nil {
		ident.Lodges = []primitive.ObjectID{*lodgeID}
	}

	if _, err := f.db.Collection("identities").InsertOne(ctx, ident); err != nil {
		f.t.Fatalf("failed to create test identity: %v", err)
	}
	return ident
}

// CreateLegacyAccount creates a credential-first legacy record.
func (f *Fixtures) CreateLegacyAccount(ctx context.Context, name, email, role, password string, lodgeID *primitive.ObjectID) models.LegacyAccount {
	f.t.Helper()

	a := models.LegacyAccount{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: f.HashPassword(password),
		Name:         name,
		Role:         role,
		Status:       "active",
		PrimaryLodge: lodgeID,
		CreatedAt:    time.Now().UTC(),
	}
	if lodgeID != nil {
		a.Lodges = []primitive.ObjectID{*lodgeID}
	}

	if _, err := f.db.Collection("legacy_accounts").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test legacy account: %v", err)
	}
	return a
}

// CreateLegacyProfile creates a profile-first legacy record. The password is
// stored in plaintext, matching the legacy system this shape came from.
func (f *Fixtures) CreateLegacyProfile(ctx context.Context, first, last, email, role, password string, lodgeID *primitive.ObjectID) models.LegacyProfile {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.LegacyProfile{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Password:     password,
		FirstName:    first,
		LastName:     last,
		Role:         role,
		Status:       "active",
		PrimaryLodge: lodgeID,
		MemberSince:  now,
		CreatedAt:    now,
	}
	if lodgeID != nil {
		p.Lodges = []primitive.ObjectID{*lodgeID}
	}

	if _, err := f.db.Collection("legacy_member_profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test legacy profile: %v", err)
	}
	return p
}

// CreateGrant creates an active per-lodge admin grant.
func (f *Fixtures) CreateGrant(ctx context.Context, identityID, lodgeID primitive.ObjectID) models.AdminGrant {
	f.t.Helper()

	g := models.AdminGrant{
		ID:         primitive.NewObjectID(),
		IdentityID: identityID,
		LodgeID:    lodgeID,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := f.db.Collection("lodge_admin_grants").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test admin grant: %v", err)
	}
	return g
}

// HashPassword bcrypt-hashes a password at minimum cost to keep tests fast.
func (f *Fixtures) HashPassword(password string) string {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash test password: %v", err)
	}
	return string(hash)
}
