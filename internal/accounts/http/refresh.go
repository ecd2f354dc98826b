package http

import (
	"net/http"

	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/pkg/httpx"
)

type RefreshHandler struct {
	AuthService   *service.AuthService
	TenantService *service.TenantService
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ServeHTTP rotates a refresh token. The consumed token is gone after
// this call whether or not the client receives the response.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ts, ok := resolveTenant(w, r, h.TenantService)
	if !ok {
		return
	}

	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"refresh_token is required")
		return
	}

	_, pair, err := h.AuthService.Refresh(ctx, tenant, ts, req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}
