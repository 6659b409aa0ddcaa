package tenancy

import "fmt"

// Authorizer exposes the guard primitives operation handlers call before
// executing an action. Every guard evaluates synchronously against the
// already-loaded tables and fails closed.
type Authorizer struct {
	cfg *Config
}

// NewAuthorizer constructs an Authorizer over the given tables.
func NewAuthorizer(cfg *Config) *Authorizer {
	return &Authorizer{cfg: cfg}
}

// RequireCapability fails unless the principal's tenant role grants the
// named permission. Principals without a role (unresolved tenant, operators)
// are denied.
func (a *Authorizer) RequireCapability(principal Principal, capability string) error {
	if principal.Role == "" {
		return fmt.Errorf("%w: no role resolved", ErrPermissionDenied)
	}
	if !a.cfg.RoleHasPermission(principal.Role, capability) {
		return fmt.Errorf("%w: role %q lacks %q", ErrPermissionDenied, principal.Role, capability)
	}
	return nil
}

// RequireRoleIn fails unless the principal's role is one of allowedRoles.
// This is the coarse axis, independent of the named-capability model.
func (a *Authorizer) RequireRoleIn(principal Principal, allowedRoles ...string) error {
	if principal.Role == "" {
		return fmt.Errorf("%w: no role resolved", ErrPermissionDenied)
	}
	for _, role := range allowedRoles {
		if principal.Role == normalizeRole(role) {
			return nil
		}
	}
	return fmt.Errorf("%w: role %q not allowed", ErrPermissionDenied, principal.Role)
}

// RequireOperatorGroupIn fails unless the identity is an internal operator
// belonging to at least one of allowedGroups.
func (a *Authorizer) RequireOperatorGroupIn(principal Principal, allowedGroups ...string) error {
	if !principal.Identity.InternalOperator {
		return fmt.Errorf("%w: internal operator required", ErrPermissionDenied)
	}
	allowed := toSet(allowedGroups, false)
	for _, group := range principal.Identity.OperatorGroups {
		if _, ok := allowed[group]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: operator group not allowed", ErrPermissionDenied)
}

// RequireOperatorCapability fails unless one of the identity's groups grants
// the named group-level capability.
func (a *Authorizer) RequireOperatorCapability(principal Principal, capability string) error {
	if !principal.Identity.InternalOperator {
		return fmt.Errorf("%w: internal operator required", ErrPermissionDenied)
	}
	for _, group := range principal.Identity.OperatorGroups {
		if a.cfg.GroupHasCapability(group, capability) {
			return nil
		}
	}
	return fmt.Errorf("%w: capability %q not granted", ErrPermissionDenied, capability)
}

// CanImpersonate is the pure pre-flight predicate: internal operator whose
// groups intersect the impersonation-allowed set.
func (a *Authorizer) CanImpersonate(identity Identity) bool {
	if !identity.InternalOperator {
		return false
	}
	for _, group := range identity.OperatorGroups {
		if a.cfg.GroupMayImpersonate(group) {
			return true
		}
	}
	return false
}
