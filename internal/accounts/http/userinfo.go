package http

import (
	"net/http"

	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/pkg/httpx"
	"github.com/canopysaas/canopy/pkg/slogx"
)

type UserInfoHandler struct {
	IdentityService *service.IdentityService
	TenantService   *service.TenantService
}

// ServeHTTP returns the authenticated user's current record. The token
// must belong to the tenant the request host resolves to.
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok || claims.Subject == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "")
		return
	}

	tenant, ts, ok := resolveTenant(w, r, h.TenantService)
	if !ok {
		return
	}
	if claims.TenantID != tenant.ID {
		httpx.WriteError(w, http.StatusForbidden, "wrong_tenant",
			"this token was issued for a different tenant")
		return
	}

	user, err := h.IdentityService.GetUser(ctx, ts, claims.Subject)
	if err != nil {
		log.Warn("load user", "user_id", claims.Subject, "err", err)
		writeServiceError(w, err)
		return
	}
	if !user.IsActive {
		httpx.WriteError(w, http.StatusForbidden, "inactive_account",
			"this account has been deactivated")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newUserResponse(user))
}
