package authz_test

import (
	"testing"

	grantstore "github.com/dalemusser/lodgehub/internal/app/store/admingrants"
	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	"github.com/dalemusser/lodgehub/internal/app/system/authz"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"github.com/dalemusser/lodgehub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newResolver(db *mongo.Database) *authz.Resolver {
	return authz.New(lodgestore.New(db), grantstore.New(db))
}

func TestResolve_SystemAdminIsSystemWide(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	lodge := fx.CreateLodge(ctx, "Anywhere")
	ident := &models.Identity{ID: primitive.NewObjectID(), Role: roles.SystemAdmin}

	perm, err := newResolver(db).Resolve(ctx, ident, &lodge.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !perm.IsSystemWide {
		t.Error("SYSTEM_ADMIN should be system-wide")
	}
	if !perm.Allows(primitive.NewObjectID()) {
		t.Error("system-wide permission should allow any lodge")
	}
}

func TestResolve_DistrictAdminClosure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	district := primitive.NewObjectID()
	anchor := fx.CreateDistrictLodge(ctx, "District Seat", district)
	sibling := fx.CreateDistrictLodge(ctx, "Sibling", district)
	child := fx.CreateChildLodge(ctx, "Child", anchor.ID)
	outside := fx.CreateLodge(ctx, "Outside")

	ident := &models.Identity{
		ID:           primitive.NewObjectID(),
		Role:         roles.DistrictAdmin,
		PrimaryLodge: &anchor.ID,
	}

	r := newResolver(db)
	perm, err := r.Resolve(ctx, ident, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, id := range []primitive.ObjectID{anchor.ID, sibling.ID, child.ID} {
		if !perm.Allows(id) {
			t.Errorf("closure should include lodge %s", id.Hex())
		}
	}
	if perm.Allows(outside.ID) {
		t.Error("closure should not include an unrelated lodge")
	}

	// Requesting the unrelated lodge explicitly is a refusal, not an error.
	if _, err := r.Resolve(ctx, ident, &outside.ID); err != authz.ErrForbidden {
		t.Errorf("outside scope: got %v, want ErrForbidden", err)
	}
}

func TestResolve_LodgeAdminGrantPaths(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	primary := fx.CreateLodge(ctx, "Primary")
	administered := fx.CreateLodge(ctx, "Administered")
	granted := fx.CreateLodge(ctx, "Granted")
	denied := fx.CreateLodge(ctx, "Denied")

	ident := &models.Identity{
		ID:                 primitive.NewObjectID(),
		Role:               roles.LodgeAdmin,
		PrimaryLodge:       &primary.ID,
		AdministeredLodges: []primitive.ObjectID{administered.ID},
	}
	fx.CreateGrant(ctx, ident.ID, granted.ID)

	r := newResolver(db)

	// Any one of the three recording places is sufficient.
	for _, id := range []primitive.ObjectID{primary.ID, administered.ID, granted.ID} {
		scope := id
		perm, err := r.Resolve(ctx, ident, &scope)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", id.Hex(), err)
		}
		if !perm.Allows(id) {
			t.Errorf("lodge %s should be allowed", id.Hex())
		}
	}

	if _, err := r.Resolve(ctx, ident, &denied.ID); err != authz.ErrForbidden {
		t.Errorf("ungranted lodge: got %v, want ErrForbidden", err)
	}
}

func TestResolve_RevokedGrantDeniesAccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	lodge := fx.CreateLodge(ctx, "Once Granted")
	ident := &models.Identity{ID: primitive.NewObjectID(), Role: roles.LodgeAdmin}
	fx.CreateGrant(ctx, ident.ID, lodge.ID)

	grants := grantstore.New(db)
	if err := grants.Revoke(ctx, ident.ID, lodge.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := newResolver(db).Resolve(ctx, ident, &lodge.ID); err != authz.ErrForbidden {
		t.Errorf("revoked grant: got %v, want ErrForbidden", err)
	}
}

func TestResolve_MemberOwnLodgesOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	mine := fx.CreateLodge(ctx, "Mine")
	other := fx.CreateLodge(ctx, "Other")

	ident := &models.Identity{
		ID:     primitive.NewObjectID(),
		Role:   roles.Member,
		Lodges: []primitive.ObjectID{mine.ID},
	}

	r := newResolver(db)
	perm, err := r.Resolve(ctx, ident, &mine.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if perm.IsSystemWide {
		t.Error("member permission should never be system-wide")
	}

	if _, err := r.Resolve(ctx, ident, &other.ID); err != authz.ErrForbidden {
		t.Errorf("other lodge: got %v, want ErrForbidden", err)
	}
}

func TestResolve_UnknownScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()

	ident := &models.Identity{ID: primitive.NewObjectID(), Role: roles.SystemAdmin}
	missing := primitive.NewObjectID()

	_, err := newResolver(db).Resolve(ctx, ident, &missing)
	if faults.KindOf(err) != faults.NotFound {
		t.Errorf("missing scope: got %v, want a NotFound fault", err)
	}
}

func TestCanMutateResource(t *testing.T) {
	author := primitive.NewObjectID()

	owner := &models.Identity{ID: author, Role: roles.Member}
	if !authz.CanMutateResource(owner, author, roles.LodgeAdmin) {
		t.Error("authors may always mutate their own resources")
	}

	peer := &models.Identity{ID: primitive.NewObjectID(), Role: roles.LodgeAdmin}
	if authz.CanMutateResource(peer, author, roles.LodgeAdmin) {
		t.Error("an equal-ranked non-author must not mutate")
	}

	district := &models.Identity{ID: primitive.NewObjectID(), Role: roles.DistrictAdmin}
	if !authz.CanMutateResource(district, author, roles.LodgeAdmin) {
		t.Error("an outranking non-author may mutate")
	}
}
