package tenancy

import (
	"context"
	"time"
)

// testStore is the in-memory Store used across the package tests.
type testStore struct {
	memberships   map[string][]Membership
	tenants       map[string]*Tenant
	subscriptions map[string][]Subscription
	plans         map[string]*Plan
	err           error
}

func newTestStore() *testStore {
	return &testStore{
		memberships:   map[string][]Membership{},
		tenants:       map[string]*Tenant{},
		subscriptions: map[string][]Subscription{},
		plans:         map[string]*Plan{},
	}
}

func (s *testStore) ActiveMembershipsByIdentity(_ context.Context, identityID string) ([]Membership, error) {
	if s.err != nil {
		return nil, s.err
	}
	var active []Membership
	for _, m := range s.memberships[identityID] {
		if m.Active {
			active = append(active, m)
		}
	}
	return active, nil
}

func (s *testStore) TenantByID(_ context.Context, id string) (*Tenant, error) {
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *testStore) CurrentSubscription(_ context.Context, tenantID string, now time.Time) (*Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	var current *Subscription
	for i := range s.subscriptions[tenantID] {
		sub := s.subscriptions[tenantID][i]
		if sub.PeriodEnd.Before(now) {
			continue
		}
		if current == nil || sub.CreatedAt.After(current.CreatedAt) {
			current = &sub
		}
	}
	if current == nil {
		return nil, ErrNotFound
	}
	copied := *current
	return &copied, nil
}

func (s *testStore) PlanByID(_ context.Context, id string) (*Plan, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func testConfig() *Config {
	return NewConfig(ConfigDocument{
		RolePermissions: map[string][]string{
			"admin":     {"asset.view", "asset.create", "asset.update", "asset.delete"},
			"manager":   {"asset.view", "asset.create", "asset.update"},
			"conductor": {"asset.view"},
		},
		GlobalViewRoles: []string{"admin", "manager"},
		OperatorGroups: map[string][]string{
			"Vendedor":   {"tenant.view"},
			"SuperAdmin": {"tenant.view", "tenant.manage"},
		},
		ImpersonationGroups: []string{"Vendedor", "SuperAdmin"},
	})
}
