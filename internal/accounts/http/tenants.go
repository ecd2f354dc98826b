package http

import (
	"net/http"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/pkg/httpx"
	"github.com/canopysaas/canopy/pkg/slogx"
)

// TenantsHandler serves the operator endpoints for the tenant registry.
// The router guards every route here with the admin bearer token.
type TenantsHandler struct {
	TenantService *service.TenantService
}

type createTenantRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Plan        string `json:"plan"`
	MaxUsers    int    `json:"max_users"`
	PrimaryHost string `json:"primary_host"`
}

func (h *TenantsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tenant, err := h.TenantService.Provision(r.Context(), service.ProvisionParams{
		Name:        req.Name,
		Description: req.Description,
		Plan:        domain.Plan(req.Plan),
		MaxUsers:    req.MaxUsers,
		PrimaryHost: req.PrimaryHost,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newTenantResponse(tenant))
}

func (h *TenantsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		tenant, err := h.TenantService.GetByName(r.Context(), name)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, []tenantResponse{newTenantResponse(tenant)})
		return
	}

	tenants, err := h.TenantService.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, newTenantResponse(t))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *TenantsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.TenantService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newTenantResponse(tenant))
}

type updateTenantRequest struct {
	Description *string `json:"description"`
	Plan        *string `json:"plan"`
	MaxUsers    *int    `json:"max_users"`
}

// HandleUpdate patches description, plan or max_users. Omitted fields
// are left alone.
func (h *TenantsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := service.UpdateParams{
		Description: req.Description,
		MaxUsers:    req.MaxUsers,
	}
	if req.Plan != nil {
		plan := domain.Plan(*req.Plan)
		params.Plan = &plan
	}

	tenant, err := h.TenantService.Update(r.Context(), r.PathValue("id"), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newTenantResponse(tenant))
}

func (h *TenantsHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *TenantsHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *TenantsHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	ctx := r.Context()
	id := r.PathValue("id")

	var err error
	if active {
		err = h.TenantService.Reactivate(ctx, id)
	} else {
		err = h.TenantService.Deactivate(ctx, id)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	tenant, err := h.TenantService.Get(ctx, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newTenantResponse(tenant))
}

// HandleDelete tears the tenant down. This drops the tenant's schema
// and every row in it; there is no undo.
func (h *TenantsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := h.TenantService.Teardown(ctx, id); err != nil {
		writeServiceError(w, err)
		return
	}

	slogx.FromContext(ctx).Info("tenant deleted by operator", "tenant_id", id)
	w.WriteHeader(http.StatusNoContent)
}
