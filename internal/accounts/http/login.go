package http

import (
	"net/http"

	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/pkg/httpx"
)

type LoginHandler struct {
	AuthService   *service.AuthService
	TenantService *service.TenantService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User userResponse `json:"user"`
	// Token fields are embedded at the top level alongside the user.
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ServeHTTP verifies credentials and issues a token pair.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ts, ok := resolveTenant(w, r, h.TenantService)
	if !ok {
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"email and password are required")
		return
	}

	user, pair, err := h.AuthService.Login(ctx, tenant, ts, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		User:         newUserResponse(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	})
}
