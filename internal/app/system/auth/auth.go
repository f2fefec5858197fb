// internal/app/system/auth/auth.go
package auth

// The single token service. Historically two issuers coexisted with differing
// expiries and claim shapes; everything now issues and verifies through this
// one claims schema and one configurable expiry.

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Claims is the bearer token payload.
type Claims struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	LodgeID string `json:"lodgeId,omitempty"`
	jwt.RegisteredClaims
}

// TokenUser is the verified caller injected into the request context.
// LodgeName is resolved live on every verification, never read from the
// token, so a lodge rename is visible immediately.
type TokenUser struct {
	ID        primitive.ObjectID
	Email     string
	Role      string
	Name      string
	LodgeID   *primitive.ObjectID
	LodgeName string
}

// ErrNoSecret is returned when the signing secret is absent at startup.
var ErrNoSecret = errors.New("token signing secret is required")

type TokenService struct {
	secret []byte
	ttl    time.Duration
	lodges *lodgestore.Store
	log    *zap.Logger
}

// NewTokenService builds the token service. An empty secret is a
// configuration error and must abort startup.
func NewTokenService(secret string, ttl time.Duration, lodges *lodgestore.Store, logger *zap.Logger) (*TokenService, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		lodges: lodges,
		log:    logger,
	}, nil
}

// Issue signs a token for the identity. The role claim is written upper-case.
func (s *TokenService) Issue(ident *models.Identity, lodgeID *primitive.ObjectID) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: ident.ID.Hex(),
		Email:  ident.Email,
		Role:   strings.ToUpper(ident.Role),
		Name:   ident.Name,
	}
	if lodgeID != nil {
		claims.LodgeID = lodgeID.Hex()
	}
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry, requires the identity id and role
// claims, and re-normalizes the role claim to upper-case (issuance sites
// have historically varied in casing). The lodge display name is looked up
// live rather than trusted from the token.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (*TokenUser, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, faults.Wrap(faults.Authentication, "invalid or expired token", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, faults.New(faults.Authentication, "invalid token claims")
	}
	if claims.UserID == "" || claims.Role == "" {
		return nil, faults.New(faults.Authentication, "token missing identity or role claim")
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, faults.Wrap(faults.Authentication, "malformed identity id claim", err)
	}

	u := &TokenUser{
		ID:    id,
		Email: claims.Email,
		Role:  roles.Normalize(claims.Role),
		Name:  claims.Name,
	}

	if claims.LodgeID != "" {
		lodgeID, err := primitive.ObjectIDFromHex(claims.LodgeID)
		if err != nil {
			return nil, faults.Wrap(faults.Authentication, "malformed lodge id claim", err)
		}
		u.LodgeID = &lodgeID
		name, err := s.lodges.NameByID(ctx, lodgeID)
		switch err {
		case nil:
			u.LodgeName = name
		case lodgestore.ErrNotFound:
			// Lodge deleted since issuance; the claim stays, the name is blank.
			s.log.Warn("token lodge no longer exists", zap.String("lodge_id", claims.LodgeID))
		default:
			return nil, err
		}
	}
	return u, nil
}

/* -------------------------------------------------------------------------- */
/* Request context plumbing                                                   */
/* -------------------------------------------------------------------------- */

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the verified caller & "found?" flag.
func CurrentUser(r *http.Request) (*TokenUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*TokenUser)
	return u, ok
}

// WithUser returns a request whose context carries the verified caller.
// Exposed for handler tests.
func WithUser(r *http.Request, u *TokenUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// RequireAuth verifies the Authorization bearer token and injects the caller
// into the request context. Requests without a valid token get 401.
func (s *TokenService) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		u, err := s.Verify(r.Context(), raw)
		if err != nil {
			s.log.Debug("token verification failed", zap.Error(err))
			http.Error(w, "invalid or expired token", faults.HTTPStatus(err))
			return
		}
		next.ServeHTTP(w, WithUser(r, u))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
