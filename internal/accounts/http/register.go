package http

import (
	"net/http"

	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/pkg/httpx"
)

type RegisterHandler struct {
	IdentityService *service.IdentityService
	TenantService   *service.TenantService
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// ServeHTTP creates a user account inside the tenant resolved from the
// request host.
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ts, ok := resolveTenant(w, r, h.TenantService)
	if !ok {
		return
	}

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.IdentityService.Register(ctx, tenant, ts, service.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newUserResponse(user))
}
