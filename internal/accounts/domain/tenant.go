package domain

import "time"

// Plan is a tenant's subscription tier.
type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPremium    Plan = "premium"
	PlanEnterprise Plan = "enterprise"
)

// Valid reports whether p is one of the known tiers.
func (p Plan) Valid() bool {
	switch p {
	case PlanBasic, PlanPremium, PlanEnterprise:
		return true
	}
	return false
}

// DefaultMaxUsers is the seat ceiling applied when provisioning does
// not specify one. Zero means unlimited.
const DefaultMaxUsers = 10

// Tenant is an isolated customer account in the catalog. Its user data
// lives in a dedicated storage schema named by Schema.
type Tenant struct {
	ID          string
	Name        string // unique across the catalog
	Schema      string // storage namespace, derived from Name at provisioning
	Description string
	Plan        Plan
	MaxUsers    int // 0 = unlimited
	IsActive    bool
	CreatedOn   time.Time
	UpdatedOn   time.Time // bumped on every mutation
}

// IsPremium reports whether the tenant is on the premium tier.
func (t Tenant) IsPremium() bool {
	return t.Plan == PlanPremium
}
