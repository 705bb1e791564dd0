package analytics

import (
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for the analytics endpoints, mounted under
// /analytics. The websocket stream is mounted separately by bootstrap at
// /ws/analytics.
func Routes(h *Handler, authMgr *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(authMgr.RequireUser)

	r.Get("/portfolio", h.HandlePortfolio)

	return r
}
