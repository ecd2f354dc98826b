package http

import (
	"net/http"

	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/pkg/httpx"
)

// DomainsHandler serves the operator endpoints for hostname bindings.
type DomainsHandler struct {
	TenantService *service.TenantService
}

type attachDomainRequest struct {
	Host      string `json:"host"`
	IsPrimary bool   `json:"is_primary"`
}

func (h *DomainsHandler) HandleAttach(w http.ResponseWriter, r *http.Request) {
	var req attachDomainRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	binding, err := h.TenantService.AttachDomain(r.Context(), r.PathValue("id"), req.Host, req.IsPrimary)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, newDomainResponse(binding))
}

func (h *DomainsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	bindings, err := h.TenantService.ListDomains(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]domainResponse, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, newDomainResponse(b))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *DomainsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	err := h.TenantService.RemoveDomain(r.Context(), r.PathValue("id"), r.PathValue("host"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
