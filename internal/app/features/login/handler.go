package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/propertyhub/internal/app/features/apierrors"
	userstore "github.com/dalemusser/propertyhub/internal/app/store/users"
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/dalemusser/propertyhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler serves token issuance and the current-user lookup.
type Handler struct {
	DB   *mongo.Database
	Auth *auth.Manager
	Log  *zap.Logger
}

func NewHandler(db *mongo.Database, authMgr *auth.Manager, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Auth: authMgr, Log: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Malformed request body.")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Email and password are required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := userstore.New(h.DB).GetByEmail(ctx, req.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "Invalid email or password.")
		return
	}
	if err != nil {
		h.Log.Error("login: user lookup failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "Invalid email or password.")
		return
	}

	token, err := h.Auth.IssueToken(user)
	if err != nil {
		h.Log.Error("login: token issue failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{Token: token, User: user})
}

// HandleMe handles GET /auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := userstore.New(h.DB).GetByID(ctx, su.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "Account no longer exists.")
		return
	}
	if err != nil {
		h.Log.Error("me: user lookup failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(user)
}
