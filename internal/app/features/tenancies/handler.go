package tenancies

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/propertyhub/internal/app/engine/assignment"
	"github.com/dalemusser/propertyhub/internal/app/features/apierrors"
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/dalemusser/propertyhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the HTTP surface of the assignment engine. All lease and
// occupancy writes in the application go through these three endpoints.
type Handler struct {
	Engine *assignment.Engine
	Log    *zap.Logger
}

func NewHandler(engine *assignment.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

type assignRequest struct {
	TenantID        string    `json:"tenant_id"`
	PropertyID      string    `json:"property_id"`
	UnitNumber      string    `json:"unit_number"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	MonthlyRent     float64   `json:"monthly_rent"`
	SecurityDeposit float64   `json:"security_deposit"`
	TenancyType     string    `json:"tenancy_type"`
	RentDueDate     *int      `json:"rent_due_date"`
}

// HandleAssign handles POST /tenancies/assign.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Malformed request body.")
		return
	}
	tenantID, err := primitive.ObjectIDFromHex(req.TenantID)
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad tenant id.")
		return
	}
	propertyID, err := primitive.ObjectIDFromHex(req.PropertyID)
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad property id.")
		return
	}
	if req.MonthlyRent <= 0 {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Monthly rent must be positive.")
		return
	}
	if !req.EndDate.After(req.StartDate) {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Lease end date must be after the start date.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	result, err := h.Engine.Assign(ctx, assignment.AssignParams{
		TenantID:    tenantID,
		PropertyID:  propertyID,
		UnitNumber:  req.UnitNumber,
		RequestedBy: userID,
		Lease: assignment.LeaseData{
			StartDate:       req.StartDate,
			EndDate:         req.EndDate,
			MonthlyRent:     req.MonthlyRent,
			SecurityDeposit: req.SecurityDeposit,
			TenancyType:     req.TenancyType,
			RentDueDate:     req.RentDueDate,
		},
	})
	if err != nil {
		apierrors.WriteEngineError(w, err, h.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result)
}

type unassignRequest struct {
	TenantID          string `json:"tenant_id"`
	PropertyID        string `json:"property_id"`
	UnitNumber        string `json:"unit_number"`
	TerminationReason string `json:"termination_reason"`
}

// HandleUnassign handles POST /tenancies/unassign.
func (h *Handler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}

	var req unassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Malformed request body.")
		return
	}
	tenantID, err := primitive.ObjectIDFromHex(req.TenantID)
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad tenant id.")
		return
	}
	propertyID, err := primitive.ObjectIDFromHex(req.PropertyID)
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad property id.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	err = h.Engine.Unassign(ctx, assignment.UnassignParams{
		TenantID:          tenantID,
		PropertyID:        propertyID,
		UnitNumber:        req.UnitNumber,
		RequestedBy:       userID,
		TerminationReason: req.TerminationReason,
	})
	if err != nil {
		apierrors.WriteEngineError(w, err, h.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "tenancy ended"})
}

// HandleForceUnassign handles POST /tenants/{id}/force-unassign.
func (h *Handler) HandleForceUnassign(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}
	tenantID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad tenant id.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	result, err := h.Engine.ForceUnassignTenant(ctx, tenantID, userID)
	if err != nil {
		apierrors.WriteEngineError(w, err, h.Log)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
