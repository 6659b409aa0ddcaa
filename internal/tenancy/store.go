package tenancy

import (
	"context"
	"time"
)

// Store describes the persistence reads the resolution pipeline depends on.
// Implementations return ErrNotFound for missing rows and propagate
// infrastructure errors untouched; the pipeline performs no retries.
type Store interface {
	// ActiveMembershipsByIdentity returns every active membership for the
	// identity, newest first.
	ActiveMembershipsByIdentity(ctx context.Context, identityID string) ([]Membership, error)

	// TenantByID looks a tenant up by id or slug.
	TenantByID(ctx context.Context, id string) (*Tenant, error)

	// CurrentSubscription returns the most recently created subscription
	// whose period covers now, or ErrNotFound when the tenant has none.
	CurrentSubscription(ctx context.Context, tenantID string, now time.Time) (*Subscription, error)

	// PlanByID returns the plan referenced by a subscription.
	PlanByID(ctx context.Context, id string) (*Plan, error)
}
