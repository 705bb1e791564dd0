package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/dalemusser/propertyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithUser adds a session user to the request context for testing
// authenticated handlers. This bypasses token verification and injects the
// user directly.
func WithUser(r *http.Request, userID primitive.ObjectID, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{ID: userID, Role: role})
}

// NewAuthenticatedRequest creates an HTTP request carrying a landlord
// session user.
func NewAuthenticatedRequest(method, target string, userID primitive.ObjectID) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return WithUser(req, userID, models.RoleLandlord)
}

// NewJSONRequest creates an authenticated HTTP request with a JSON body.
func NewJSONRequest(t *testing.T, method, target string, userID primitive.ObjectID, body interface{}) *http.Request {
	t.Helper()

	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return WithUser(req, userID, models.RoleLandlord)
}

// DecodeJSON decodes a response body into out.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}
