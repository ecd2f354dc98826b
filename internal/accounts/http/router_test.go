package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/internal/accounts/store/drivers/sqlite"
	"github.com/canopysaas/canopy/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "test-admin-token"

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.GenerateEdDSASigner()
	require.NoError(t, err)
	verifier := jwtx.NewVerifierEdDSA(signer.Public(), "https://accounts.test")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(signer, verifier, testAdminToken, "test", st, logger)
	r.IdentityService = &service.IdentityService{}
	r.AuthService = &service.AuthService{
		Signer:     signer,
		Issuer:     "https://accounts.test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	r.TenantService = &service.TenantService{Store: st}
	r.ApplyRoutes()

	return r
}

// do sends a JSON request through the router. host becomes the request
// Host header; bearer, when set, becomes the Authorization header.
func do(t *testing.T, r *Router, method, host, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, "http://"+host+path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func provisionTestTenant(t *testing.T, r *Router, name, host string) tenantResponse {
	t.Helper()

	rec := do(t, r, http.MethodPost, "admin.test", "/v1/tenants", testAdminToken, map[string]any{
		"name":         name,
		"primary_host": host,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tenant tenantResponse
	decodeBody(t, rec, &tenant)
	return tenant
}

func TestAuthFlow(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	provisionTestTenant(t, r, "Acme Corp", "acme.test")

	t.Run("register", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "acme.test", "/v1/auth/register", "", map[string]string{
			"email":     "alice@example.com",
			"password":  "hunter2hunter2",
			"full_name": "Alice Liddell",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var user userResponse
		decodeBody(t, rec, &user)
		require.Equal(t, "alice@example.com", user.Email)
		require.True(t, user.IsActive)
		require.False(t, user.IsStaff)
		require.False(t, user.DateJoined.IsZero())

		// Password material and login telemetry must not leak into the
		// payload.
		require.NotContains(t, rec.Body.String(), "password")
		require.NotContains(t, rec.Body.String(), "last_login")
	})

	t.Run("duplicate register", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "acme.test", "/v1/auth/register", "", map[string]string{
			"email":    "ALICE@example.com",
			"password": "hunter2hunter2",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("register against unknown host", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "nobody.test", "/v1/auth/register", "", map[string]string{
			"email":    "bob@example.com",
			"password": "hunter2hunter2",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	var refreshToken, accessToken string

	t.Run("login", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "acme.test", "/v1/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "wrong-password",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = do(t, r, http.MethodPost, "acme.test", "/v1/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": "hunter2hunter2",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp loginResponse
		decodeBody(t, rec, &resp)
		require.Equal(t, "Bearer", resp.TokenType)
		require.NotEmpty(t, resp.AccessToken)
		require.NotEmpty(t, resp.RefreshToken)
		require.NotContains(t, rec.Body.String(), "last_login")

		accessToken = resp.AccessToken
		refreshToken = resp.RefreshToken
	})

	t.Run("userinfo", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, "acme.test", "/v1/userinfo", accessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var user userResponse
		decodeBody(t, rec, &user)
		require.Equal(t, "alice@example.com", user.Email)
		require.Equal(t, "Alice Liddell", user.FullName)
	})

	t.Run("userinfo without token", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, "acme.test", "/v1/userinfo", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("userinfo against another tenant's host", func(t *testing.T) {
		provisionTestTenant(t, r, "Globex", "globex.test")
		rec := do(t, r, http.MethodGet, "globex.test", "/v1/userinfo", accessToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("refresh rotation", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "acme.test", "/v1/auth/refresh", "", map[string]string{
			"refresh_token": refreshToken,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var pair struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		decodeBody(t, rec, &pair)
		require.NotEmpty(t, pair.RefreshToken)
		require.NotEqual(t, refreshToken, pair.RefreshToken)

		// The consumed token no longer works.
		rec = do(t, r, http.MethodPost, "acme.test", "/v1/auth/refresh", "", map[string]string{
			"refresh_token": refreshToken,
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	tenant := provisionTestTenant(t, r, "Admin Co", "adminco.test")

	t.Run("reject missing or wrong token", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, "admin.test", "/v1/tenants", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = do(t, r, http.MethodGet, "admin.test", "/v1/tenants", "wrong-token", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("list and get", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, "admin.test", "/v1/tenants", testAdminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var tenants []tenantResponse
		decodeBody(t, rec, &tenants)
		require.Len(t, tenants, 1)

		rec = do(t, r, http.MethodGet, "admin.test", "/v1/tenants/"+tenant.ID, testAdminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, r, http.MethodGet, "admin.test", "/v1/tenants/unknown", testAdminToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("lookup by name", func(t *testing.T) {
		rec := do(t, r, http.MethodGet, "admin.test", "/v1/tenants?name=Admin+Co", testAdminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var tenants []tenantResponse
		decodeBody(t, rec, &tenants)
		require.Len(t, tenants, 1)
		require.Equal(t, tenant.ID, tenants[0].ID)

		rec = do(t, r, http.MethodGet, "admin.test", "/v1/tenants?name=Nobody", testAdminToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := do(t, r, http.MethodPatch, "admin.test", "/v1/tenants/"+tenant.ID, testAdminToken, map[string]any{
			"plan":      "premium",
			"max_users": 25,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got tenantResponse
		decodeBody(t, rec, &got)
		require.Equal(t, "premium", got.Plan)
		require.Equal(t, 25, got.MaxUsers)
		require.Equal(t, tenant.Name, got.Name)

		rec = do(t, r, http.MethodPatch, "admin.test", "/v1/tenants/"+tenant.ID, testAdminToken, map[string]any{
			"plan": "platinum",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("deactivate blocks tenant traffic", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "admin.test", "/v1/tenants/"+tenant.ID+"/deactivate", testAdminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(t, r, http.MethodPost, "adminco.test", "/v1/auth/register", "", map[string]string{
			"email":    "x@example.com",
			"password": "hunter2hunter2",
		})
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = do(t, r, http.MethodPost, "admin.test", "/v1/tenants/"+tenant.ID+"/activate", testAdminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got tenantResponse
		decodeBody(t, rec, &got)
		require.True(t, got.IsActive)
	})

	t.Run("domains", func(t *testing.T) {
		rec := do(t, r, http.MethodPost, "admin.test", "/v1/tenants/"+tenant.ID+"/domains", testAdminToken, map[string]any{
			"host": "alias.adminco.test",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = do(t, r, http.MethodGet, "admin.test", "/v1/tenants/"+tenant.ID+"/domains", testAdminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var bindings []domainResponse
		decodeBody(t, rec, &bindings)
		require.Len(t, bindings, 2)

		rec = do(t, r, http.MethodDelete, "admin.test", "/v1/tenants/"+tenant.ID+"/domains/alias.adminco.test", testAdminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("teardown", func(t *testing.T) {
		rec := do(t, r, http.MethodDelete, "admin.test", "/v1/tenants/"+tenant.ID, testAdminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(t, r, http.MethodGet, "admin.test", "/v1/tenants/"+tenant.ID, testAdminToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "any.test", "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, "any.test", "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health healthResponse
	decodeBody(t, rec, &health)
	require.Equal(t, "ok", health.Status)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
}
