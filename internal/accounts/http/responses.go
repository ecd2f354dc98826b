package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/domain"
	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/internal/accounts/store"
	"github.com/canopysaas/canopy/pkg/httpx"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// userResponse is the serialized user payload: exactly id, email,
// full_name, is_active, is_staff and date_joined. Credential material
// and login telemetry are never part of it.
type userResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	IsActive   bool      `json:"is_active"`
	IsStaff    bool      `json:"is_staff"`
	DateJoined time.Time `json:"date_joined"`
}

func newUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		IsActive:   u.IsActive,
		IsStaff:    u.IsStaff,
		DateJoined: u.DateJoined,
	}
}

type tenantResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Schema      string    `json:"schema_name"`
	Description string    `json:"description,omitempty"`
	Plan        string    `json:"plan"`
	MaxUsers    int       `json:"max_users"`
	IsActive    bool      `json:"is_active"`
	CreatedOn   time.Time `json:"created_on"`
	UpdatedOn   time.Time `json:"updated_on"`
}

func newTenantResponse(t domain.Tenant) tenantResponse {
	return tenantResponse{
		ID:          t.ID,
		Name:        t.Name,
		Schema:      t.Schema,
		Description: t.Description,
		Plan:        string(t.Plan),
		MaxUsers:    t.MaxUsers,
		IsActive:    t.IsActive,
		CreatedOn:   t.CreatedOn,
		UpdatedOn:   t.UpdatedOn,
	}
}

type domainResponse struct {
	Host      string    `json:"host"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

func newDomainResponse(d domain.Domain) domainResponse {
	return domainResponse{Host: d.Host, IsPrimary: d.IsPrimary, CreatedAt: d.CreatedAt}
}

// decodeJSON reads a JSON request body into dst, rejecting unknown
// fields and oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

// writeServiceError maps domain and service errors onto HTTP status
// codes and the standard error body.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			verr.Field+" "+verr.Reason)
	case errors.Is(err, service.ErrDuplicateIdentity):
		httpx.WriteError(w, http.StatusConflict, "duplicate_identity",
			"the email, name or host is already taken")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials",
			"email or password is incorrect")
	case errors.Is(err, service.ErrInactiveAccount):
		httpx.WriteError(w, http.StatusForbidden, "inactive_account",
			"this account has been deactivated")
	case errors.Is(err, service.ErrInvalidRefresh):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_refresh_token",
			"the refresh token is invalid or expired")
	case errors.Is(err, service.ErrTenantInactive):
		httpx.WriteError(w, http.StatusForbidden, "tenant_inactive",
			"this tenant has been deactivated")
	case errors.Is(err, service.ErrTenantFull):
		httpx.WriteError(w, http.StatusForbidden, "tenant_full",
			"the tenant has reached its user limit")
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
	}
}
