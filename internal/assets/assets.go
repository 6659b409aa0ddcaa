// Package assets is the example tenant-scoped resource the authorization
// pipeline gates: listings go through the scope filter, creations through
// the plan-limit gate.
package assets

import (
	"context"
	"time"

	"tenantcore.org/internal/tenancy"
)

// LimitKey is the plan quota bounding assets per tenant.
const LimitKey = "max_assets"

// Capabilities checked by the asset handlers.
const (
	CapView   = "asset.view"
	CapCreate = "asset.create"
	CapDelete = "asset.delete"
)

// Asset is a tenant-owned record with an optional subsidiary assignment.
type Asset struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	SubsidiaryID string    `json:"subsidiary_id,omitempty"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a Asset) RecordTenantID() string     { return a.TenantID }
func (a Asset) RecordSubsidiaryID() string { return a.SubsidiaryID }

// Store is the persistence surface for assets. List applies the visibility
// scope server-side, on top of baseline tenant isolation.
type Store interface {
	List(ctx context.Context, scope tenancy.Scope, limit int) ([]Asset, error)
	CountByTenant(ctx context.Context, tenantID string) (int, error)
	Create(ctx context.Context, asset *Asset) error
	// Delete removes an asset within the tenant; tenancy.ErrNotFound when
	// no such row exists for that tenant.
	Delete(ctx context.Context, tenantID, id string) error
}
