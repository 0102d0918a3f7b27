package access

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/livedocs-app/livedocs/internal/platform/httpx"
)

// PermissionsHandler exposes the raw permission decision over HTTP.
type PermissionsHandler struct {
	gateway *Gateway
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(gateway *Gateway) *PermissionsHandler {
	return &PermissionsHandler{gateway: gateway}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/check", h.check)
}

func (h *PermissionsHandler) check(w http.ResponseWriter, r *http.Request) {
	principal := r.URL.Query().Get("user")
	if principal == "" {
		principal = httpx.ActorFromContext(r.Context()).Email
	}
	action := r.URL.Query().Get("action")
	if principal == "" || action == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "user and action required")
		return
	}
	allowed := h.gateway.Authorize(r.Context(), principal, action)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":    principal,
		"action":  action,
		"allowed": allowed,
	})
}
