// Package auth provides JWT bearer authentication for the API.
//
// Tokens are issued by the login feature and carry the user id as subject
// plus a role claim. Every core operation takes its requesting-user id from
// the session user this middleware loads, which is what scopes tenants and
// properties to their owning landlord.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/propertyhub/internal/app/features/apierrors"
	"github.com/dalemusser/propertyhub/internal/domain/models"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type contextKey string

const userContextKey contextKey = "propertyhub.sessionuser"

// SessionUser is the authenticated caller loaded into the request context.
type SessionUser struct {
	ID   primitive.ObjectID
	Role string
}

// Claims are the JWT claims this service issues and accepts.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager issues and verifies API tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	log    *zap.Logger
}

// NewManager builds a Manager. The signing secret must be non-empty; weak
// secrets are a deployment concern validated at config load.
func NewManager(secret string, ttl time.Duration, logger *zap.Logger) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, log: logger}, nil
}

// IssueToken creates a signed token for the user.
func (m *Manager) IssueToken(u models.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken verifies a token string and returns the session user it names.
func (m *Manager) ParseToken(token string) (*SessionUser, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, errors.New("invalid subject")
	}
	return &SessionUser{ID: id, Role: claims.Role}, nil
}

// RequireUser rejects requests without a valid bearer token and loads the
// session user into the request context.
func (m *Manager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
			return
		}

		user, err := m.ParseToken(token)
		if err != nil {
			m.log.Debug("token rejected", zap.Error(err))
			apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "Invalid or expired token.")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// RequireAdmin additionally rejects non-admin callers. It must be mounted
// inside RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := CurrentUser(r)
		if !ok {
			apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
			return
		}
		if user.Role != models.RoleAdmin {
			apierrors.Write(w, http.StatusForbidden, apierrors.KindForbidden, "Administrator access is required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUser returns the session user loaded by RequireUser.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	user, ok := r.Context().Value(userContextKey).(*SessionUser)
	return user, ok
}

// CurrentUserID returns just the authenticated user's id.
func CurrentUserID(r *http.Request) (primitive.ObjectID, bool) {
	user, ok := CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	return user.ID, true
}

// WithTestUser injects a session user directly into the request context,
// bypassing token verification. Test use only.
func WithTestUser(r *http.Request, user *SessionUser) *http.Request {
	return r.WithContext(withUser(r.Context(), user))
}

func withUser(ctx context.Context, user *SessionUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
