package permissions_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/lodgehub/internal/app/features/permissions"
	grantstore "github.com/dalemusser/lodgehub/internal/app/store/admingrants"
	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
	legacystore "github.com/dalemusser/lodgehub/internal/app/store/legacy"
	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	"github.com/dalemusser/lodgehub/internal/app/system/authz"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(db *mongo.Database) *permissions.Handler {
	dir := directory.New(identitystore.New(db), legacystore.New(db))
	resolver := authz.New(lodgestore.New(db), grantstore.New(db))
	return permissions.NewHandler(dir, resolver, zap.NewNop())
}

func TestResolve_SystemAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)
	h := newHandler(db)

	admin := fx.CreateIdentity(ctx, "Root", "root@example.com", roles.SystemAdmin, nil)

	req := testutil.NewAuthenticatedRequest("GET", "/permissions", admin.ID, admin.Email, admin.Role)
	rec := httptest.NewRecorder()
	h.Resolve(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	var perm struct {
		Role         string `json:"role"`
		IsSystemWide bool   `json:"is_system_wide"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &perm); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if !perm.IsSystemWide || perm.Role != roles.SystemAdmin {
		t.Errorf("permission: got %+v, want system-wide SYSTEM_ADMIN", perm)
	}
}

func TestResolve_ScopedRequestForbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)
	h := newHandler(db)

	mine := fx.CreateLodge(ctx, "Mine")
	other := fx.CreateLodge(ctx, "Other")
	member := fx.CreateIdentity(ctx, "M", "m@example.com", roles.Member, &mine.ID)

	req := testutil.NewAuthenticatedRequest("GET", "/permissions?scope="+other.ID.Hex(), member.ID, member.Email, member.Role)
	rec := httptest.NewRecorder()
	h.Resolve(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}
}

func TestResolve_UnknownScopeIs404(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)
	h := newHandler(db)

	admin := fx.CreateIdentity(ctx, "Root", "root@example.com", roles.SystemAdmin, nil)

	req := testutil.NewAuthenticatedRequest("GET", "/permissions?scope=000000000000000000000001", admin.ID, admin.Email, admin.Role)
	rec := httptest.NewRecorder()
	h.Resolve(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestResolve_Unauthenticated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(db)

	rec := httptest.NewRecorder()
	h.Resolve(rec, httptest.NewRequest("GET", "/permissions", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}
