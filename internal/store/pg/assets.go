package pg

import (
	"context"
	"database/sql"
	"fmt"

	"tenantcore.org/internal/assets"
	"tenantcore.org/internal/tenancy"
)

var _ assets.Store = (*Store)(nil)

// List returns the assets visible under the scope. Tenant isolation is the
// baseline predicate; the subsidiary restriction stacks on top of it.
func (s *Store) List(ctx context.Context, scope tenancy.Scope, limit int) ([]assets.Asset, error) {
	if scope.Empty {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if scope.All {
		rows, err = s.db.QueryContext(ctx, `
			select id, tenant_id, coalesce(subsidiary_id, ''), name, coalesce(category, ''), created_at
			from assets
			where tenant_id = $1
			order by created_at desc, id desc
			limit $2
		`, scope.TenantID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			select id, tenant_id, coalesce(subsidiary_id, ''), name, coalesce(category, ''), created_at
			from assets
			where tenant_id = $1 and subsidiary_id = $2
			order by created_at desc, id desc
			limit $3
		`, scope.TenantID, scope.SubsidiaryID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []assets.Asset
	for rows.Next() {
		var a assets.Asset
		if err := rows.Scan(&a.ID, &a.TenantID, &a.SubsidiaryID, &a.Name, &a.Category, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `select count(*) from assets where tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) Create(ctx context.Context, asset *assets.Asset) error {
	var subsidiary any
	if asset.SubsidiaryID != "" {
		subsidiary = asset.SubsidiaryID
	}
	var category any
	if asset.Category != "" {
		category = asset.Category
	}
	err := s.db.QueryRowContext(ctx, `
		insert into assets (id, tenant_id, subsidiary_id, name, category)
		values ($1, $2, $3, $4, $5)
		returning created_at
	`, asset.ID, asset.TenantID, subsidiary, asset.Name, category).Scan(&asset.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: asset %s", tenancy.ErrConflict, asset.ID)
	}
	return err
}

func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from assets where tenant_id = $1 and id = $2`, tenantID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return tenancy.ErrNotFound
	}
	return nil
}
