// Package http wires the accounts service's HTTP surface: tenant-scoped
// auth endpoints that resolve their tenant from the request host, and
// operator endpoints for the tenant registry.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/service"
	"github.com/canopysaas/canopy/internal/accounts/store"
	"github.com/canopysaas/canopy/pkg/httpx"
	"github.com/canopysaas/canopy/pkg/jwtx"
	"github.com/canopysaas/canopy/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	verifier     jwtx.Verifier
	adminToken   string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	IdentityService *service.IdentityService
	AuthService     *service.AuthService
	TenantService   *service.TenantService
}

func NewRouter(
	signer jwtx.Signer,
	verifier jwtx.Verifier,
	adminToken, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		verifier:     verifier,
		adminToken:   adminToken,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// Registration and login take credentials, so both get the strict
	// per-IP limit.
	registerHandler := &RegisterHandler{
		IdentityService: r.IdentityService,
		TenantService:   r.TenantService,
	}
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	loginHandler := &LoginHandler{
		AuthService:   r.AuthService,
		TenantService: r.TenantService,
	}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	refreshHandler := &RefreshHandler{
		AuthService:   r.AuthService,
		TenantService: r.TenantService,
	}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UserInfoHandler{
		IdentityService: r.IdentityService,
		TenantService:   r.TenantService,
	}

	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)
	r.Mux.Handle("GET /v1/userinfo", secured)
}

func (r *Router) registerAdmin() {
	guard := httpx.RequireAdminToken(r.adminToken)
	limit := httpx.RateLimitByIP(httpx.ModerateLimit)

	tenants := &TenantsHandler{TenantService: r.TenantService}
	domains := &DomainsHandler{TenantService: r.TenantService}

	admin := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, guard, limit)
	}

	r.Mux.Handle("POST /v1/tenants", admin(tenants.HandleCreate))
	r.Mux.Handle("GET /v1/tenants", admin(tenants.HandleList))
	r.Mux.Handle("GET /v1/tenants/{id}", admin(tenants.HandleGet))
	r.Mux.Handle("PATCH /v1/tenants/{id}", admin(tenants.HandleUpdate))
	r.Mux.Handle("POST /v1/tenants/{id}/deactivate", admin(tenants.HandleDeactivate))
	r.Mux.Handle("POST /v1/tenants/{id}/activate", admin(tenants.HandleActivate))
	r.Mux.Handle("DELETE /v1/tenants/{id}", admin(tenants.HandleDelete))

	r.Mux.Handle("POST /v1/tenants/{id}/domains", admin(domains.HandleAttach))
	r.Mux.Handle("GET /v1/tenants/{id}/domains", admin(domains.HandleList))
	r.Mux.Handle("DELETE /v1/tenants/{id}/domains/{host}", admin(domains.HandleRemove))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
