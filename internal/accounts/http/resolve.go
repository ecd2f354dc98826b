package http

import (
	"errors"
	"net/http"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/internal/accounts/store"
	"github.com/canopysaas/canopy/pkg/httpx"
	"github.com/canopysaas/canopy/pkg/slogx"
)

// resolveTenant maps the request's Host header to its tenant and a
// store handle. On failure it writes the response and returns ok=false.
func resolveTenant(
	w http.ResponseWriter,
	r *http.Request,
	tenants *service.TenantService,
) (domain.Tenant, store.TenantStore, bool) {
	tenant, ts, err := tenants.ResolveHost(r.Context(), r.Host)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			httpx.WriteError(w, http.StatusNotFound, "unknown_tenant",
				"no tenant is bound to this hostname")
		case errors.Is(err, service.ErrTenantInactive):
			httpx.WriteError(w, http.StatusForbidden, "tenant_inactive",
				"this tenant has been deactivated")
		default:
			slogx.FromContext(r.Context()).Error("resolve tenant", "host", r.Host, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return domain.Tenant{}, nil, false
	}
	return tenant, ts, true
}
