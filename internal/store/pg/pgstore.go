package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tenantcore.org/internal/tenancy"
)

const pgErrUniqueViolation = "23505"

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// Store implements the persistence reads of the resolution pipeline plus
// the asset queries of the example surface, over PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ tenancy.Store = (*Store)(nil)

// Open connects to PostgreSQL with pool defaults tuned for short
// point-reads; every pipeline query is a single statement.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection, used by tests and cmd wiring.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) ActiveMembershipsByIdentity(ctx context.Context, identityID string) ([]tenancy.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, tenant_id, identity_id, role, coalesce(subsidiary_id, ''), active, created_at
		from memberships
		where identity_id = $1 and active
		order by created_at desc, id desc
	`, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []tenancy.Membership
	for rows.Next() {
		var m tenancy.Membership
		if err := rows.Scan(&m.ID, &m.TenantID, &m.IdentityID, &m.Role, &m.SubsidiaryID, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (s *Store) TenantByID(ctx context.Context, id string) (*tenancy.Tenant, error) {
	var t tenancy.Tenant
	err := s.db.QueryRowContext(ctx, `
		select id, name, slug, active, created_at, updated_at
		from tenants
		where id = $1 or slug = $1
	`, id).Scan(&t.ID, &t.Name, &t.Slug, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tenancy.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CurrentSubscription(ctx context.Context, tenantID string, now time.Time) (*tenancy.Subscription, error) {
	var sub tenancy.Subscription
	err := s.db.QueryRowContext(ctx, `
		select id, tenant_id, plan_id, status, period_start, period_end, auto_renew, created_at
		from subscriptions
		where tenant_id = $1 and period_end >= $2
		order by created_at desc
		limit 1
	`, tenantID, now).Scan(&sub.ID, &sub.TenantID, &sub.PlanID, &sub.Status,
		&sub.PeriodStart, &sub.PeriodEnd, &sub.AutoRenew, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tenancy.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) PlanByID(ctx context.Context, id string) (*tenancy.Plan, error) {
	var (
		plan      tenancy.Plan
		rawLimits []byte
	)
	err := s.db.QueryRowContext(ctx, `
		select id, name, limits, active
		from plans
		where id = $1
	`, id).Scan(&plan.ID, &plan.Name, &rawLimits, &plan.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tenancy.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	plan.Limits = map[string]int{}
	if len(rawLimits) > 0 {
		if err := json.Unmarshal(rawLimits, &plan.Limits); err != nil {
			return nil, fmt.Errorf("decode plan limits: %w", err)
		}
	}
	return &plan, nil
}

// ListTenants backs the operator admin surface.
func (s *Store) ListTenants(ctx context.Context) ([]tenancy.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, slug, active, created_at, updated_at
		from tenants
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []tenancy.Tenant
	for rows.Next() {
		var t tenancy.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
