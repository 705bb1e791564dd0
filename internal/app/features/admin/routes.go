package admin

import (
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for the admin endpoints, mounted under /admin.
func Routes(h *Handler, authMgr *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(authMgr.RequireUser)
	r.Use(auth.RequireAdmin)

	r.Post("/reconcile", h.HandleReconcile)

	return r
}
