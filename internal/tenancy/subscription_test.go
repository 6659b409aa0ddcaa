package tenancy

import (
	"context"
	"errors"
	"testing"
	"time"
)

var gateNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestGate(store *testStore) *Gate {
	gate, err := NewGate(store, func() time.Time { return gateNow })
	if err != nil {
		panic(err)
	}
	return gate
}

func activeTenantPrincipal(store *testStore) Principal {
	store.tenants["t1"] = &Tenant{ID: "t1", Active: true}
	return Principal{Identity: Identity{ID: "u1"}, Tenant: store.tenants["t1"], Role: "staff"}
}

func TestGateNoTenantPasses(t *testing.T) {
	gate := newTestGate(newTestStore())
	sub, err := gate.Check(context.Background(), Principal{Identity: Identity{ID: "op", InternalOperator: true}})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if sub != nil {
		t.Fatal("expected nil subscription without a tenant")
	}
}

func TestGateInactiveTenant(t *testing.T) {
	store := newTestStore()
	principal := activeTenantPrincipal(store)
	principal.Tenant.Active = false

	gate := newTestGate(store)
	if _, err := gate.Check(context.Background(), principal); !errors.Is(err, ErrTenantInactive) {
		t.Fatalf("expected ErrTenantInactive, got %v", err)
	}
}

func TestGateNoSubscription(t *testing.T) {
	store := newTestStore()
	principal := activeTenantPrincipal(store)

	gate := newTestGate(store)
	if _, err := gate.Check(context.Background(), principal); !errors.Is(err, ErrSubscriptionRequired) {
		t.Fatalf("expected ErrSubscriptionRequired, got %v", err)
	}
}

func TestGateExpiredPeriodDespiteActiveStatus(t *testing.T) {
	store := newTestStore()
	principal := activeTenantPrincipal(store)
	store.subscriptions["t1"] = []Subscription{
		{ID: "s1", TenantID: "t1", PlanID: "p1", Status: SubscriptionActive,
			PeriodEnd: gateNow.Add(-24 * time.Hour), CreatedAt: gateNow.Add(-30 * 24 * time.Hour)},
	}

	gate := newTestGate(store)
	if _, err := gate.Check(context.Background(), principal); !errors.Is(err, ErrSubscriptionRequired) {
		t.Fatalf("expected ErrSubscriptionRequired for lapsed period, got %v", err)
	}
}

func TestGateSuspendedAndCanceled(t *testing.T) {
	for _, status := range []string{SubscriptionSuspended, SubscriptionCanceled} {
		store := newTestStore()
		principal := activeTenantPrincipal(store)
		store.subscriptions["t1"] = []Subscription{
			{ID: "s1", TenantID: "t1", PlanID: "p1", Status: status,
				PeriodEnd: gateNow.Add(24 * time.Hour), CreatedAt: gateNow.Add(-time.Hour)},
		}
		gate := newTestGate(store)
		if _, err := gate.Check(context.Background(), principal); !errors.Is(err, ErrSubscriptionSuspended) {
			t.Fatalf("status %s: expected ErrSubscriptionSuspended, got %v", status, err)
		}
	}
}

func TestGatePastDue(t *testing.T) {
	store := newTestStore()
	principal := activeTenantPrincipal(store)
	store.subscriptions["t1"] = []Subscription{
		{ID: "s1", TenantID: "t1", PlanID: "p1", Status: SubscriptionPastDue,
			PeriodEnd: gateNow.Add(24 * time.Hour), CreatedAt: gateNow.Add(-time.Hour)},
	}
	gate := newTestGate(store)
	if _, err := gate.Check(context.Background(), principal); !errors.Is(err, ErrSubscriptionRequired) {
		t.Fatalf("expected ErrSubscriptionRequired for past_due, got %v", err)
	}
}

func TestGateMostRecentCurrentWins(t *testing.T) {
	store := newTestStore()
	principal := activeTenantPrincipal(store)
	store.subscriptions["t1"] = []Subscription{
		{ID: "old", TenantID: "t1", PlanID: "p-old", Status: SubscriptionActive,
			PeriodEnd: gateNow.Add(24 * time.Hour), CreatedAt: gateNow.Add(-48 * time.Hour)},
		{ID: "new", TenantID: "t1", PlanID: "p-new", Status: SubscriptionActive,
			PeriodEnd: gateNow.Add(24 * time.Hour), CreatedAt: gateNow.Add(-time.Hour)},
	}

	gate := newTestGate(store)
	sub, err := gate.Check(context.Background(), principal)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if sub.ID != "new" {
		t.Fatalf("expected most recently created current subscription, got %s", sub.ID)
	}
}

func TestGateAppliesToImpersonatedSessions(t *testing.T) {
	store := newTestStore()
	principal := activeTenantPrincipal(store)
	principal.Identity = Identity{ID: "op", InternalOperator: true, OperatorGroups: []string{"Vendedor"}}
	principal.Impersonating = true
	principal.Role = ""

	gate := newTestGate(store)
	if _, err := gate.Check(context.Background(), principal); !errors.Is(err, ErrSubscriptionRequired) {
		t.Fatalf("entitlement applies uniformly to impersonated sessions, got %v", err)
	}
}
