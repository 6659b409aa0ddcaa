package tenancy

import (
	"context"
	"errors"
)

// CheckLimit decides whether one more record may be created under the plan.
// The current count is supplied by the collaborator owning the resource
// type; this keeps the comparison storage-agnostic. An absent key means
// unlimited.
func CheckLimit(plan Plan, key string, current int) error {
	bound, ok := plan.Limit(key)
	if !ok {
		return nil
	}
	if current >= bound {
		return &PlanLimitError{Key: key, Bound: bound, Current: current}
	}
	return nil
}

// LimitGate resolves a tenant's current plan and applies CheckLimit against
// it, so creation handlers only need the limit key and a count.
type LimitGate struct {
	store Store
	gate  *Gate
}

// NewLimitGate constructs a LimitGate sharing the subscription gate's
// currency rule.
func NewLimitGate(store Store, gate *Gate) (*LimitGate, error) {
	if store == nil {
		return nil, errors.New("tenancy: store is required")
	}
	if gate == nil {
		return nil, errors.New("tenancy: gate is required")
	}
	return &LimitGate{store: store, gate: gate}, nil
}

// CheckCreate fails with *PlanLimitError when the tenant's plan bounds key
// and the current count has reached the bound.
func (g *LimitGate) CheckCreate(ctx context.Context, principal Principal, key string, current int) error {
	sub, err := g.gate.Check(ctx, principal)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrSubscriptionRequired
	}
	plan, err := g.store.PlanByID(ctx, sub.PlanID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrSubscriptionRequired
		}
		return err
	}
	return CheckLimit(*plan, key, current)
}
