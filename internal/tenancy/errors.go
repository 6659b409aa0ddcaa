package tenancy

import (
	"errors"
	"fmt"
)

// Terminal, user-facing failures. The pipeline raises them at the point of
// detection and never recovers locally; the invoking layer maps them to
// responses.
var (
	ErrTenantNotFound        = errors.New("tenancy: tenant not found")
	ErrTenantInactive        = errors.New("tenancy: tenant inactive")
	ErrSubscriptionRequired  = errors.New("tenancy: subscription required")
	ErrSubscriptionSuspended = errors.New("tenancy: subscription suspended")
	ErrPermissionDenied      = errors.New("tenancy: permission denied")
	ErrPlanLimitExceeded     = errors.New("tenancy: plan limit exceeded")
)

// ErrNotFound is returned by Store implementations when a lookup matches no
// row. The resolver translates it into the user-facing taxonomy.
var ErrNotFound = errors.New("tenancy: not found")

// ErrConflict is returned by Store implementations when a write collides
// with an existing row.
var ErrConflict = errors.New("tenancy: conflict")

// PlanLimitError carries the quota details needed for user-facing messaging.
// It matches ErrPlanLimitExceeded under errors.Is.
type PlanLimitError struct {
	Key     string
	Bound   int
	Current int
}

func (e *PlanLimitError) Error() string {
	return fmt.Sprintf("tenancy: plan limit %q reached (%d of %d)", e.Key, e.Current, e.Bound)
}

func (e *PlanLimitError) Is(target error) bool {
	return target == ErrPlanLimitExceeded
}
