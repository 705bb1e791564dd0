package tenants

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/propertyhub/internal/app/features/apierrors"
	tenantstore "github.com/dalemusser/propertyhub/internal/app/store/tenants"
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/dalemusser/propertyhub/internal/app/system/timeouts"
	"github.com/dalemusser/propertyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves landlord tenant CRUD. Lease history is read-only here:
// leases only change through the tenancies feature.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}

// HandleList handles GET /tenants.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := tenantstore.New(h.DB).ListByOwner(ctx, ownerID)
	if err != nil {
		h.Log.Error("tenant list failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}
	if list == nil {
		list = []models.Tenant{}
	}

	writeJSON(w, list)
}

// HandleGet handles GET /tenants/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad tenant id.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	tenant, err := tenantstore.New(h.DB).GetOwned(ctx, id, ownerID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.Write(w, http.StatusNotFound, apierrors.KindNotFound, "Record not found.")
		return
	}
	if err != nil {
		h.Log.Error("tenant get failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	writeJSON(w, tenant)
}

type tenantRequest struct {
	FullName      string                `json:"full_name"`
	Email         string                `json:"email"`
	Phone         string                `json:"phone"`
	Employment    models.Employment     `json:"employment"`
	Affordability *models.Affordability `json:"affordability"`
	Referencing   models.Referencing    `json:"referencing"`
	RightToRent   models.RightToRent    `json:"right_to_rent"`
}

// HandleCreate handles POST /tenants.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}

	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Malformed request body.")
		return
	}

	tenant := models.Tenant{
		OwnerID:       ownerID,
		FullName:      strings.TrimSpace(req.FullName),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Employment:    req.Employment,
		Affordability: req.Affordability,
		Referencing:   req.Referencing,
		RightToRent:   req.RightToRent,
	}

	if err := tenant.Validate(); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := tenantstore.New(h.DB).Create(ctx, tenant)
	if err != nil {
		h.Log.Error("tenant create failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, created)
}

// HandleUpdate handles PUT /tenants/{id}. The stored lease history survives
// the update untouched.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad tenant id.")
		return
	}

	var req tenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Malformed request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	store := tenantstore.New(h.DB)
	tenant, err := store.GetOwned(ctx, id, ownerID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.Write(w, http.StatusNotFound, apierrors.KindNotFound, "Record not found.")
		return
	}
	if err != nil {
		h.Log.Error("tenant get(update) failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	tenant.FullName = strings.TrimSpace(req.FullName)
	tenant.Email = strings.TrimSpace(req.Email)
	tenant.Phone = strings.TrimSpace(req.Phone)
	tenant.Employment = req.Employment
	tenant.Affordability = req.Affordability
	tenant.Referencing = req.Referencing
	tenant.RightToRent = req.RightToRent

	if err := tenant.Validate(); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, err.Error())
		return
	}

	updated, err := store.Update(ctx, tenant)
	if err != nil {
		h.Log.Error("tenant update failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	writeJSON(w, updated)
}

// HandleDelete handles DELETE /tenants/{id}. Deleting a tenant with an
// active lease would leave a property pointing at a vanished occupant, so
// that is a Conflict: unassign (or force-unassign) first.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad tenant id.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	store := tenantstore.New(h.DB)
	tenant, err := store.GetOwned(ctx, id, ownerID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.Write(w, http.StatusNotFound, apierrors.KindNotFound, "Record not found.")
		return
	}
	if err != nil {
		h.Log.Error("tenant get(delete) failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	if len(tenant.ActiveLeases()) > 0 {
		apierrors.WriteConflict(w, "tenant has an active lease")
		return
	}

	if err := store.Delete(ctx, tenant.ID); err != nil {
		h.Log.Error("tenant delete failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	writeJSON(w, map[string]string{"message": "tenant deleted"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
