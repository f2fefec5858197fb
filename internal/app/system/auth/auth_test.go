package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"github.com/dalemusser/lodgehub/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "test-secret-0123456789"

func newService(t *testing.T, lodges *lodgestore.Store) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(testSecret, time.Hour, lodges, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := auth.NewTokenService("", time.Hour, nil, zap.NewNop())
	if err != auth.ErrNoSecret {
		t.Errorf("expected ErrNoSecret, got %v", err)
	}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)

	lodge := fx.CreateLodge(ctx, "Harbor Lodge")
	svc := newService(t, lodgestore.New(db))

	ident := &models.Identity{
		ID:    primitive.NewObjectID(),
		Email: "alice@example.com",
		Name:  "Alice",
		Role:  roles.LodgeAdmin,
	}
	token, err := svc.Issue(ident, &lodge.ID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	u, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if u.ID != ident.ID {
		t.Errorf("id: got %s, want %s", u.ID.Hex(), ident.ID.Hex())
	}
	if u.Role != roles.LodgeAdmin {
		t.Errorf("role: got %q, want %q", u.Role, roles.LodgeAdmin)
	}
	if u.LodgeID == nil || *u.LodgeID != lodge.ID {
		t.Error("lodge id claim did not round-trip")
	}
	if u.LodgeName != "Harbor Lodge" {
		t.Errorf("lodge name: got %q, want %q", u.LodgeName, "Harbor Lodge")
	}
}

// Tokens minted by older issuers carry lower-case role claims; verification
// must normalize them.
func TestVerify_NormalizesLowercaseRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	svc := newService(t, lodgestore.New(db))

	token := signRaw(t, auth.Claims{
		UserID: primitive.NewObjectID().Hex(),
		Email:  "bob@example.com",
		Role:   "lodge_admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	u, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if u.Role != roles.LodgeAdmin {
		t.Errorf("role: got %q, want %q", u.Role, roles.LodgeAdmin)
	}
}

func TestVerify_RejectsExpiredToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	svc := newService(t, lodgestore.New(db))

	token := signRaw(t, auth.Claims{
		UserID: primitive.NewObjectID().Hex(),
		Role:   roles.Member,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	if _, err := svc.Verify(ctx, token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestVerify_RejectsMissingClaims(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	svc := newService(t, lodgestore.New(db))

	token := signRaw(t, auth.Claims{
		Email: "noid@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	if _, err := svc.Verify(ctx, token); err == nil {
		t.Error("expected token without identity/role claims to be rejected")
	}
}

func TestVerify_DeletedLodgeLeavesNameBlank(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	svc := newService(t, lodgestore.New(db))

	gone := primitive.NewObjectID()
	token := signRaw(t, auth.Claims{
		UserID:  primitive.NewObjectID().Hex(),
		Role:    roles.Member,
		LodgeID: gone.Hex(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	u, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if u.LodgeID == nil || *u.LodgeID != gone {
		t.Error("lodge id claim should survive even when the lodge is gone")
	}
	if u.LodgeName != "" {
		t.Errorf("lodge name: got %q, want blank", u.LodgeName)
	}
}

func TestRequireAuth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newService(t, lodgestore.New(db))

	var seen *auth.TokenUser
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.CurrentUser(r)
	})
	handler := svc.RequireAuth(next)

	// No token: 401.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", rec.Code)
	}

	// Valid token: caller lands in the context.
	ident := &models.Identity{ID: primitive.NewObjectID(), Email: "c@example.com", Role: roles.Member}
	token, err := svc.Issue(ident, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen == nil || seen.ID != ident.ID {
		t.Error("expected the verified caller in the request context")
	}
}

func signRaw(t *testing.T, claims auth.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return token
}
