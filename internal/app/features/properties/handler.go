package properties

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/propertyhub/internal/app/features/apierrors"
	propertystore "github.com/dalemusser/propertyhub/internal/app/store/properties"
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/dalemusser/propertyhub/internal/app/system/timeouts"
	"github.com/dalemusser/propertyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves landlord property CRUD. Occupancy state is read-only here:
// it only changes through the tenancies feature (the assignment engine).
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}

// HandleList handles GET /properties.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := propertystore.New(h.DB).ListByOwner(ctx, ownerID)
	if err != nil {
		h.Log.Error("property list failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}
	if list == nil {
		list = []models.Property{}
	}

	writeJSON(w, list)
}

// HandleGet handles GET /properties/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad property id.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	property, err := propertystore.New(h.DB).GetOwned(ctx, id, ownerID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.Write(w, http.StatusNotFound, apierrors.KindNotFound, "Record not found.")
		return
	}
	if err != nil {
		h.Log.Error("property get failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	writeJSON(w, property)
}

type propertyRequest struct {
	Name         string   `json:"name"`
	AddressLine1 string   `json:"address_line1"`
	City         string   `json:"city"`
	Postcode     string   `json:"postcode"`
	PropertyType string   `json:"property_type"`
	MonthlyRent  float64  `json:"monthly_rent"`
	Status       string   `json:"status"`
	Units        []struct {
		UnitNumber  string  `json:"unit_number"`
		MonthlyRent float64 `json:"monthly_rent"`
	} `json:"units"`
}

// HandleCreate handles POST /properties.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}

	var req propertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Malformed request body.")
		return
	}

	property := models.Property{
		OwnerID:      ownerID,
		Name:         strings.TrimSpace(req.Name),
		AddressLine1: strings.TrimSpace(req.AddressLine1),
		City:         strings.TrimSpace(req.City),
		Postcode:     strings.TrimSpace(req.Postcode),
		PropertyType: req.PropertyType,
		MonthlyRent:  req.MonthlyRent,
		Status:       req.Status,
	}
	if property.Status == "" {
		property.Status = models.PropertyStatusAvailable
	}
	for _, u := range req.Units {
		property.Units = append(property.Units, models.Unit{
			UnitNumber:  strings.TrimSpace(u.UnitNumber),
			MonthlyRent: u.MonthlyRent,
			Status:      models.UnitStatusAvailable,
		})
	}

	if err := property.Validate(); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	created, err := propertystore.New(h.DB).Create(ctx, property)
	if err != nil {
		h.Log.Error("property create failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, created)
}

// HandleUpdate handles PUT /properties/{id}. Occupancy and unit-occupancy
// fields in the stored document survive the update untouched.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad property id.")
		return
	}

	var req propertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Malformed request body.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	store := propertystore.New(h.DB)
	property, err := store.GetOwned(ctx, id, ownerID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.Write(w, http.StatusNotFound, apierrors.KindNotFound, "Record not found.")
		return
	}
	if err != nil {
		h.Log.Error("property get(update) failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	property.Name = strings.TrimSpace(req.Name)
	property.AddressLine1 = strings.TrimSpace(req.AddressLine1)
	property.City = strings.TrimSpace(req.City)
	property.Postcode = strings.TrimSpace(req.Postcode)
	property.PropertyType = req.PropertyType
	property.MonthlyRent = req.MonthlyRent

	if err := property.Validate(); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, err.Error())
		return
	}

	updated, err := store.Update(ctx, property)
	if err != nil {
		h.Log.Error("property update failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	writeJSON(w, updated)
}

// HandleDelete handles DELETE /properties/{id}. Deleting an occupied
// property would orphan its tenant's active lease, so that is a Conflict:
// unassign (or force-unassign) first.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad property id.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	store := propertystore.New(h.DB)
	property, err := store.GetOwned(ctx, id, ownerID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.Write(w, http.StatusNotFound, apierrors.KindNotFound, "Record not found.")
		return
	}
	if err != nil {
		h.Log.Error("property get(delete) failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	if isAnySlotOccupied(property) {
		apierrors.WriteConflict(w, "property is occupied")
		return
	}

	if err := store.Delete(ctx, property.ID); err != nil {
		h.Log.Error("property delete failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	writeJSON(w, map[string]string{"message": "property deleted"})
}

func isAnySlotOccupied(p models.Property) bool {
	if p.Occupancy != nil && p.Occupancy.IsOccupied {
		return true
	}
	for _, u := range p.Units {
		if u.IsOccupied {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
