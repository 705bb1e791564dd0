package login

import (
	"github.com/dalemusser/propertyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for the auth endpoints, mounted under /auth.
func Routes(h *Handler, authMgr *auth.Manager) chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.HandleLogin)
	r.With(authMgr.RequireUser).Get("/me", h.HandleMe)
	return r
}
