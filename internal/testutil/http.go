package testutil

import (
	"net/http"
	"net/http/httptest"

	"github.com/dalemusser/lodgehub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithTokenUser adds a verified caller to the request context, bypassing the
// bearer-token middleware. Use this in handler tests.
func WithTokenUser(r *http.Request, id primitive.ObjectID, email, role string) *http.Request {
	return auth.WithUser(r, &auth.TokenUser{
		ID:    id,
		Email: email,
		Role:  role,
	})
}

// NewAuthenticatedRequest creates an HTTP request with a caller in context.
func NewAuthenticatedRequest(method, target string, id primitive.ObjectID, email, role string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithTokenUser(req, id, email, role)
}
