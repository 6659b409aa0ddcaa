package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Resolver turns an authenticated identity into a Principal: membership
// lookup for tenant users, header-driven impersonation for internal
// operators.
type Resolver struct {
	store Store
	cfg   *Config
}

// NewResolver constructs a Resolver over the given store and tables.
func NewResolver(store Store, cfg *Config) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("tenancy: store is required")
	}
	if cfg == nil {
		return nil, errors.New("tenancy: config is required")
	}
	return &Resolver{store: store, cfg: cfg}, nil
}

// Resolve produces the Principal for one request. tenantSelector is the
// raw value of the tenant-selector header and is only consulted for
// internal operators.
func (r *Resolver) Resolve(ctx context.Context, identity Identity, tenantSelector string) (Principal, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return Principal{}, fmt.Errorf("%w: identity is required", ErrPermissionDenied)
	}
	if identity.InternalOperator {
		return r.resolveOperator(ctx, identity, tenantSelector)
	}
	return r.resolveMember(ctx, identity)
}

func (r *Resolver) resolveMember(ctx context.Context, identity Identity) (Principal, error) {
	memberships, err := r.store.ActiveMembershipsByIdentity(ctx, identity.ID)
	if err != nil {
		return Principal{}, err
	}
	if len(memberships) == 0 {
		return Principal{}, ErrTenantNotFound
	}

	chosen := pickMembership(memberships)
	tenant, err := r.store.TenantByID(ctx, chosen.TenantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrTenantNotFound
		}
		return Principal{}, err
	}

	return Principal{
		Identity:     identity,
		Tenant:       tenant,
		Role:         normalizeRole(chosen.Role),
		SubsidiaryID: chosen.SubsidiaryID,
	}, nil
}

func (r *Resolver) resolveOperator(ctx context.Context, identity Identity, tenantSelector string) (Principal, error) {
	tenantSelector = strings.TrimSpace(tenantSelector)
	if tenantSelector == "" {
		// No selector: the operator proceeds without a tenant. Operations
		// that need one fail on their own.
		return Principal{Identity: identity}, nil
	}

	// Authorization comes before the lookup so an unauthorized operator
	// never learns whether the selector names a real tenant.
	if !r.CanImpersonate(identity) {
		return Principal{}, fmt.Errorf("%w: not authorized to impersonate", ErrPermissionDenied)
	}

	tenant, err := r.store.TenantByID(ctx, tenantSelector)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrTenantNotFound
		}
		return Principal{}, err
	}
	if !tenant.Active {
		return Principal{}, ErrTenantInactive
	}

	// Operators act under group capabilities, not tenant roles.
	return Principal{
		Identity:      identity,
		Tenant:        tenant,
		Impersonating: true,
	}, nil
}

// CanImpersonate reports whether the identity is an internal operator in at
// least one impersonation-allowed group.
func (r *Resolver) CanImpersonate(identity Identity) bool {
	if !identity.InternalOperator {
		return false
	}
	for _, group := range identity.OperatorGroups {
		if r.cfg.GroupMayImpersonate(group) {
			return true
		}
	}
	return false
}

// pickMembership resolves the ambiguous-membership case: the membership
// with the most recent creation timestamp wins, with the id breaking exact
// timestamp ties so repeated calls stay stable.
func pickMembership(memberships []Membership) Membership {
	chosen := memberships[0]
	for _, m := range memberships[1:] {
		if m.CreatedAt.After(chosen.CreatedAt) {
			chosen = m
			continue
		}
		if m.CreatedAt.Equal(chosen.CreatedAt) && m.ID > chosen.ID {
			chosen = m
		}
	}
	return chosen
}
