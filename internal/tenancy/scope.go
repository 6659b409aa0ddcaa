package tenancy

// Record is any tenant-scoped row the ScopeFilter can narrow: it carries a
// tenant reference and an optional subsidiary reference (empty = none).
type Record interface {
	RecordTenantID() string
	RecordSubsidiaryID() string
}

// Scope is the visibility decision for one principal, consumable both by
// the in-memory filter and by SQL listing queries.
type Scope struct {
	TenantID     string
	SubsidiaryID string
	All          bool
	Empty        bool
}

// ScopeFor computes the data visibility for a principal.
//
// Baseline tenant isolation always applies first: nothing outside the
// resolved tenant is ever visible. Within the tenant, impersonating
// operators and global-view roles see everything; other roles see only
// their membership's subsidiary. A role without global view and without a
// subsidiary assignment sees nothing — that is a deliberate fail-safe, not
// an oversight.
func ScopeFor(cfg *Config, principal Principal) Scope {
	if !principal.HasTenant() {
		return Scope{Empty: true}
	}
	scope := Scope{TenantID: principal.Tenant.ID}
	if principal.Impersonating || principal.Identity.InternalOperator {
		scope.All = true
		return scope
	}
	if cfg.RoleHasGlobalView(principal.Role) {
		scope.All = true
		return scope
	}
	if principal.SubsidiaryID == "" {
		scope.Empty = true
		return scope
	}
	scope.SubsidiaryID = principal.SubsidiaryID
	return scope
}

// Allows reports whether a single record is visible under the scope.
func (s Scope) Allows(record Record) bool {
	if s.Empty || record.RecordTenantID() != s.TenantID {
		return false
	}
	if s.All {
		return true
	}
	return record.RecordSubsidiaryID() == s.SubsidiaryID
}

// FilterScoped narrows records to the subset the principal may see.
func FilterScoped[T Record](cfg *Config, principal Principal, records []T) []T {
	scope := ScopeFor(cfg, principal)
	if scope.Empty {
		return nil
	}
	out := make([]T, 0, len(records))
	for _, record := range records {
		if scope.Allows(record) {
			out = append(out, record)
		}
	}
	return out
}
