package tenancy

import (
	"context"
	"errors"
	"time"
)

// Gate validates that a resolved tenant is currently entitled to service.
// It is a pure read and runs on every tenant-scoped request, including
// impersonated sessions.
type Gate struct {
	store Store
	now   func() time.Time
}

// NewGate constructs a Gate. now defaults to time.Now.
func NewGate(store Store, now func() time.Time) (*Gate, error) {
	if store == nil {
		return nil, errors.New("tenancy: store is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Gate{store: store, now: now}, nil
}

// Check returns the tenant's current subscription or one of the entitlement
// failures. Principals without a tenant pass with a nil subscription.
func (g *Gate) Check(ctx context.Context, principal Principal) (*Subscription, error) {
	if !principal.HasTenant() {
		return nil, nil
	}
	tenant := principal.Tenant
	if !tenant.Active {
		return nil, ErrTenantInactive
	}

	now := g.now().UTC()
	sub, err := g.store.CurrentSubscription(ctx, tenant.ID, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSubscriptionRequired
		}
		return nil, err
	}

	// Re-validate the period here even though the store already selected on
	// it. A nominally "active" status must not outlive the paid period.
	if !sub.Covers(now) {
		return nil, ErrSubscriptionRequired
	}

	switch sub.Status {
	case SubscriptionActive:
		return sub, nil
	case SubscriptionSuspended, SubscriptionCanceled:
		return nil, ErrSubscriptionSuspended
	default:
		return nil, ErrSubscriptionRequired
	}
}
