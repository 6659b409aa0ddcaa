package tenancy

import "time"

// Identity is the already-authenticated caller, as handed over by the
// token-verification layer. It is read-only for the request lifetime.
type Identity struct {
	ID               string   `json:"id"`
	InternalOperator bool     `json:"internal_operator"`
	OperatorGroups   []string `json:"operator_groups,omitempty"`
}

// Tenant is an organizational customer whose data is isolated from others.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subscription statuses. The set mirrors what billing writes to storage.
const (
	SubscriptionActive    = "active"
	SubscriptionPastDue   = "past_due"
	SubscriptionSuspended = "suspended"
	SubscriptionCanceled  = "canceled"
)

// Subscription controls a tenant's entitlement window.
type Subscription struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	PlanID      string    `json:"plan_id"`
	Status      string    `json:"status"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	AutoRenew   bool      `json:"auto_renew"`
	CreatedAt   time.Time `json:"created_at"`
}

// Covers reports whether the subscription period includes the given instant.
func (s Subscription) Covers(now time.Time) bool {
	return !s.PeriodEnd.Before(now)
}

// Plan defines quota bounds shared by every tenant subscribed to it. Limit
// keys are deployment-defined; an absent key means unlimited.
type Plan struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Limits map[string]int `json:"limits,omitempty"`
	Active bool           `json:"active"`
}

// Limit returns the bound for key and whether one is configured.
func (p Plan) Limit(key string) (int, bool) {
	if p.Limits == nil {
		return 0, false
	}
	n, ok := p.Limits[key]
	return n, ok
}

// Membership grants an identity a role within one tenant. SubsidiaryID is
// empty when no subsidiary restriction applies via this membership.
type Membership struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	IdentityID   string    `json:"identity_id"`
	Role         string    `json:"role"`
	SubsidiaryID string    `json:"subsidiary_id,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subsidiary is a sub-scope within a tenant used for data visibility.
type Subsidiary struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}
