package domain

import "time"

// Domain binds a hostname to a tenant. Incoming requests resolve their
// tenant context through the host header and this binding.
type Domain struct {
	ID        string
	TenantID  string
	Host      string // hostname, unique across the whole catalog
	IsPrimary bool   // exactly one primary per tenant
	CreatedAt time.Time
}
