package tenancy

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheckLimitAbsentKeyUnlimited(t *testing.T) {
	plan := Plan{ID: "p1", Limits: map[string]int{"max_assets": 5}}
	for _, current := range []int{0, 5, 50000} {
		if err := CheckLimit(plan, "max_drivers", current); err != nil {
			t.Fatalf("absent key must be unlimited at count %d, got %v", current, err)
		}
	}
	if err := CheckLimit(Plan{ID: "p2"}, "max_assets", 10); err != nil {
		t.Fatalf("plan without limits must be unlimited, got %v", err)
	}
}

func TestCheckLimitBound(t *testing.T) {
	plan := Plan{ID: "p1", Limits: map[string]int{"max_assets": 5}}

	if err := CheckLimit(plan, "max_assets", 4); err != nil {
		t.Fatalf("count below bound must pass, got %v", err)
	}
	for _, current := range []int{5, 6} {
		err := CheckLimit(plan, "max_assets", current)
		if !errors.Is(err, ErrPlanLimitExceeded) {
			t.Fatalf("count %d: expected ErrPlanLimitExceeded, got %v", current, err)
		}
		var limitErr *PlanLimitError
		if !errors.As(err, &limitErr) {
			t.Fatalf("expected *PlanLimitError, got %T", err)
		}
		if limitErr.Key != "max_assets" || limitErr.Bound != 5 || limitErr.Current != current {
			t.Fatalf("unexpected details: %+v", limitErr)
		}
	}
}

func TestLimitGateCheckCreate(t *testing.T) {
	store := newTestStore()
	store.tenants["t1"] = &Tenant{ID: "t1", Active: true}
	store.plans["p1"] = &Plan{ID: "p1", Limits: map[string]int{"max_assets": 2}}
	store.subscriptions["t1"] = []Subscription{
		{ID: "s1", TenantID: "t1", PlanID: "p1", Status: SubscriptionActive,
			PeriodEnd: gateNow.Add(24 * time.Hour), CreatedAt: gateNow.Add(-time.Hour)},
	}
	gate := newTestGate(store)
	limits, err := NewLimitGate(store, gate)
	if err != nil {
		t.Fatalf("NewLimitGate: %v", err)
	}
	principal := Principal{Identity: Identity{ID: "u1"}, Tenant: store.tenants["t1"], Role: "manager"}

	if err := limits.CheckCreate(context.Background(), principal, "max_assets", 1); err != nil {
		t.Fatalf("expected creation allowed, got %v", err)
	}
	if err := limits.CheckCreate(context.Background(), principal, "max_assets", 2); !errors.Is(err, ErrPlanLimitExceeded) {
		t.Fatalf("expected ErrPlanLimitExceeded, got %v", err)
	}
}

func TestLimitGateWithoutSubscription(t *testing.T) {
	store := newTestStore()
	store.tenants["t1"] = &Tenant{ID: "t1", Active: true}
	gate := newTestGate(store)
	limits, _ := NewLimitGate(store, gate)
	principal := Principal{Identity: Identity{ID: "u1"}, Tenant: store.tenants["t1"], Role: "manager"}

	if err := limits.CheckCreate(context.Background(), principal, "max_assets", 0); !errors.Is(err, ErrSubscriptionRequired) {
		t.Fatalf("expected ErrSubscriptionRequired, got %v", err)
	}
}
