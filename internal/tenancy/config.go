package tenancy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Config holds the process-wide authorization tables. It is built once at
// startup from externally authored configuration and never mutated after,
// so concurrent readers need no locking.
//
// Tenant roles and internal-operator groups are two disjoint namespaces:
// roles come from memberships and map to permission names, groups come from
// the identity token and map to operator capabilities.
type Config struct {
	rolePermissions map[string]map[string]struct{}
	globalViewRoles map[string]struct{}
	operatorGroups  map[string]map[string]struct{}
	impersonation   map[string]struct{}
}

// ConfigDocument is the on-disk shape consumed by LoadConfig.
type ConfigDocument struct {
	RolePermissions     map[string][]string `json:"role_permissions"`
	GlobalViewRoles     []string            `json:"global_view_roles"`
	OperatorGroups      map[string][]string `json:"operator_groups"`
	ImpersonationGroups []string            `json:"impersonation_groups"`
}

// NewConfig normalizes and freezes the authorization tables. Role names are
// trimmed and lower-cased; group names are trimmed but keep their case.
func NewConfig(doc ConfigDocument) *Config {
	cfg := &Config{
		rolePermissions: make(map[string]map[string]struct{}, len(doc.RolePermissions)),
		globalViewRoles: make(map[string]struct{}, len(doc.GlobalViewRoles)),
		operatorGroups:  make(map[string]map[string]struct{}, len(doc.OperatorGroups)),
		impersonation:   make(map[string]struct{}, len(doc.ImpersonationGroups)),
	}
	for role, perms := range doc.RolePermissions {
		role = normalizeRole(role)
		if role == "" {
			continue
		}
		cfg.rolePermissions[role] = toSet(perms, false)
	}
	for _, role := range doc.GlobalViewRoles {
		if role = normalizeRole(role); role != "" {
			cfg.globalViewRoles[role] = struct{}{}
		}
	}
	for group, caps := range doc.OperatorGroups {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		cfg.operatorGroups[group] = toSet(caps, false)
	}
	for _, group := range doc.ImpersonationGroups {
		if group = strings.TrimSpace(group); group != "" {
			cfg.impersonation[group] = struct{}{}
		}
	}
	return cfg
}

// LoadConfig reads the authorization tables from a JSON document on disk.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tenancy: read config: %w", err)
	}
	var doc ConfigDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("tenancy: decode config: %w", err)
	}
	return NewConfig(doc), nil
}

// RoleHasPermission reports whether role grants the named permission.
func (c *Config) RoleHasPermission(role, permission string) bool {
	perms, ok := c.rolePermissions[normalizeRole(role)]
	if !ok {
		return false
	}
	_, ok = perms[strings.TrimSpace(permission)]
	return ok
}

// RoleHasGlobalView reports whether role bypasses subsidiary scoping.
func (c *Config) RoleHasGlobalView(role string) bool {
	_, ok := c.globalViewRoles[normalizeRole(role)]
	return ok
}

// GroupHasCapability reports whether an operator group grants the named
// group-level capability.
func (c *Config) GroupHasCapability(group, capability string) bool {
	caps, ok := c.operatorGroups[strings.TrimSpace(group)]
	if !ok {
		return false
	}
	_, ok = caps[strings.TrimSpace(capability)]
	return ok
}

// GroupMayImpersonate reports whether the group is in the
// impersonation-allowed set.
func (c *Config) GroupMayImpersonate(group string) bool {
	_, ok := c.impersonation[strings.TrimSpace(group)]
	return ok
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

func toSet(values []string, lower bool) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
