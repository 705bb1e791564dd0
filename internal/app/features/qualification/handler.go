package qualification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dalemusser/propertyhub/internal/app/features/apierrors"
	tenantstore "github.com/dalemusser/propertyhub/internal/app/store/tenants"
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/dalemusser/propertyhub/internal/app/system/timeouts"
	"github.com/dalemusser/propertyhub/internal/domain/qualify"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the advisory qualification check: would this tenant
// qualify for a given rent? It never writes anything.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}

// Result bundles the income and affordability checks for one tenant/rent pair.
type Result struct {
	Rent          float64                     `json:"rent"`
	Income        qualify.IncomeResult        `json:"income"`
	Affordability qualify.AffordabilityResult `json:"affordability"`
}

// HandleCheck handles GET /tenants/{id}/qualification?rent=1500.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}
	tenantID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad tenant id.")
		return
	}
	rent, err := strconv.ParseFloat(r.URL.Query().Get("rent"), 64)
	if err != nil || rent <= 0 {
		apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "rent must be a positive number.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	tenant, err := tenantstore.New(h.DB).GetOwned(ctx, tenantID, ownerID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierrors.Write(w, http.StatusNotFound, apierrors.KindNotFound, "Record not found.")
		return
	}
	if err != nil {
		h.Log.Error("qualification tenant lookup failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	out := Result{
		Rent:          rent,
		Income:        qualify.CheckIncome(tenant, rent),
		Affordability: qualify.CheckAffordability(tenant, rent),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
