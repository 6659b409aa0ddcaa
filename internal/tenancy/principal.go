package tenancy

import "context"

// Principal is the request-scoped resolution result: the authenticated
// identity plus derived tenant, role and impersonation state. It is built
// once per request, passed explicitly, and never persisted.
type Principal struct {
	Identity      Identity
	Tenant        *Tenant
	Role          string
	SubsidiaryID  string
	Impersonating bool
}

// HasTenant reports whether the request resolved to a tenant. A nil tenant
// is a valid terminal state for internal operators browsing without a
// selector; operations that need a tenant must fail on their own.
func (p Principal) HasTenant() bool {
	return p.Tenant != nil
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the resolved principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the resolved principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}
