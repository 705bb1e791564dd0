package tenancies

import (
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for the tenancy endpoints, mounted under
// /tenancies. Force-unassign also lives here (it is an engine operation)
// even though its path is tenant-shaped; bootstrap mounts it separately.
func Routes(h *Handler, authMgr *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(authMgr.RequireUser)

	r.Post("/assign", h.HandleAssign)
	r.Post("/unassign", h.HandleUnassign)

	return r
}
