package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/propertyhub/internal/app/engine/reconcile"
	"github.com/dalemusser/propertyhub/internal/app/features/apierrors"
	"github.com/dalemusser/propertyhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves admin-only operational endpoints. These are wired behind
// RequireAdmin; an ordinary landlord never reaches them.
type Handler struct {
	Reconciler *reconcile.Service
	Log        *zap.Logger
}

func NewHandler(svc *reconcile.Service, logger *zap.Logger) *Handler {
	return &Handler{Reconciler: svc, Log: logger}
}

type reconcileRequest struct {
	// OwnerID limits the run to one landlord's portfolio; empty means every
	// owner with active leases.
	OwnerID string `json:"owner_id"`
	// DryRun reports drift without repairing it.
	DryRun bool `json:"dry_run"`
}

type reconcileResponse struct {
	Synced int               `json:"synced"`
	Drift  []reconcile.Drift `json:"drift,omitempty"`
}

// HandleReconcile handles POST /admin/reconcile.
func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Malformed request body.")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	var resp reconcileResponse

	switch {
	case req.DryRun:
		if req.OwnerID == "" {
			apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "dry_run requires owner_id.")
			return
		}
		ownerID, err := primitive.ObjectIDFromHex(req.OwnerID)
		if err != nil {
			apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad owner id.")
			return
		}
		drift, err := h.Reconciler.DetectDrift(ctx, ownerID)
		if err != nil {
			h.Log.Error("drift detection failed", zap.Error(err))
			apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
			return
		}
		resp.Drift = drift

	case req.OwnerID != "":
		ownerID, err := primitive.ObjectIDFromHex(req.OwnerID)
		if err != nil {
			apierrors.Write(w, http.StatusBadRequest, apierrors.KindInvalidArgument, "Bad owner id.")
			return
		}
		synced, err := h.Reconciler.SyncTenantAssignments(ctx, ownerID)
		if err != nil {
			h.Log.Error("reconcile failed", zap.Error(err), zap.String("owner_id", req.OwnerID))
			apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
			return
		}
		resp.Synced = synced

	default:
		synced, err := h.Reconciler.SyncAll(ctx)
		if err != nil {
			h.Log.Error("full reconcile failed", zap.Error(err))
			apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
			return
		}
		resp.Synced = synced
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
