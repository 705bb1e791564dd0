package analytics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/propertyhub/internal/app/features/apierrors"
	"github.com/dalemusser/propertyhub/internal/app/notify"
	"github.com/dalemusser/propertyhub/internal/app/store/queries/portfolio"
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/dalemusser/propertyhub/internal/app/system/timeouts"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the portfolio read model: one-shot over HTTP, and a
// websocket stream that the notifier pushes fresh summaries down after
// every committed assignment change.
type Handler struct {
	DB  *mongo.Database
	Hub *notify.Hub
	Log *zap.Logger

	upgrader websocket.Upgrader
}

func NewHandler(db *mongo.Database, hub *notify.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		DB:  db,
		Hub: hub,
		Log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Token auth, no cookies, so cross-origin dashboards are fine.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandlePortfolio handles GET /analytics/portfolio.
func (h *Handler) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	summary, err := portfolio.Compute(ctx, h.DB, ownerID)
	if err != nil {
		h.Log.Error("portfolio summary failed", zap.Error(err))
		apierrors.Write(w, http.StatusInternalServerError, apierrors.KindInternal, "An internal error occurred.")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

// HandleStream handles GET /ws/analytics. The connection receives a
// portfolio_summary event immediately and again after every assignment
// change in the owner's portfolio.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.CurrentUserID(r)
	if !ok {
		apierrors.Write(w, http.StatusUnauthorized, apierrors.KindUnauthorized, "A bearer token is required.")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.Hub.Subscribe(ownerID, conn)

	// Initial snapshot so the dashboard renders without waiting for a change.
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()
	summary, err := portfolio.Compute(ctx, h.DB, ownerID)
	if err != nil {
		h.Log.Warn("initial portfolio snapshot failed", zap.Error(err))
		return
	}
	h.Hub.Broadcast(ownerID, notify.Event{Type: "portfolio_summary", Data: summary})
}
