package httpapi

import (
	"errors"
	"net/http"

	"tenantcore.org/internal/audit"
	"tenantcore.org/internal/authn"
	"tenantcore.org/internal/events"
	"tenantcore.org/internal/obs"
	"tenantcore.org/internal/tenancy"
)

// tenantSelectorHeader carries the tenant an internal operator wants to
// impersonate. Ignored for normal users.
const tenantSelectorHeader = "X-Tenant-ID"

// withTenant runs the per-request resolution pipeline: identity → tenant
// (possibly via impersonation) → subscription gate → principal in context.
// Each stage short-circuits with its own failure; nothing here mutates
// state, so abandoning the request mid-pipeline is safe.
func (a *API) withTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		identity, ok := authn.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		principal, err := a.resolver.Resolve(r.Context(), identity, r.Header.Get(tenantSelectorHeader))
		if err != nil {
			obs.ObserveDecision("resolve", decisionOutcome(err))
			a.publishDecision(r, "resolve", decisionOutcome(err), tenancy.Principal{Identity: identity})
			a.writeAuthzError(w, r, err)
			return
		}
		obs.ObserveDecision("resolve", "allow")

		// Entitlement applies uniformly, impersonated sessions included.
		if _, err := a.gate.Check(r.Context(), principal); err != nil {
			obs.ObserveDecision("subscription", decisionOutcome(err))
			a.publishDecision(r, "subscription", decisionOutcome(err), principal)
			a.writeAuthzError(w, r, err)
			return
		}
		obs.ObserveDecision("subscription", "allow")
		a.publishDecision(r, "pipeline", "allow", principal)

		ctx := tenancy.ContextWithPrincipal(r.Context(), principal)
		ctx = audit.WithRequestID(ctx, RequestIDFromContext(ctx))
		if principal.Impersonating {
			_ = audit.LogImpersonation(ctx, principal)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeAuthzError maps the failure taxonomy onto HTTP responses with
// machine-readable codes.
func (a *API) writeAuthzError(w http.ResponseWriter, r *http.Request, err error) {
	payload := map[string]any{}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}

	var limitErr *tenancy.PlanLimitError
	switch {
	case errors.Is(err, tenancy.ErrTenantNotFound):
		payload["error"] = "no tenant associated with this account"
		payload["code"] = "tenant_not_found"
		writeJSON(w, http.StatusNotFound, payload)
	case errors.Is(err, tenancy.ErrTenantInactive):
		payload["error"] = "this account is deactivated"
		payload["code"] = "tenant_inactive"
		writeJSON(w, http.StatusForbidden, payload)
	case errors.Is(err, tenancy.ErrSubscriptionSuspended):
		payload["error"] = "subscription is suspended, contact support"
		payload["code"] = "subscription_suspended"
		writeJSON(w, http.StatusPaymentRequired, payload)
	case errors.Is(err, tenancy.ErrSubscriptionRequired):
		payload["error"] = "a current subscription is required"
		payload["code"] = "subscription_required"
		writeJSON(w, http.StatusPaymentRequired, payload)
	case errors.As(err, &limitErr):
		payload["error"] = limitErr.Error()
		payload["code"] = "plan_limit_exceeded"
		payload["limit_key"] = limitErr.Key
		payload["bound"] = limitErr.Bound
		payload["current"] = limitErr.Current
		writeJSON(w, http.StatusForbidden, payload)
	case errors.Is(err, tenancy.ErrPermissionDenied):
		payload["error"] = "permission denied"
		payload["code"] = "permission_denied"
		writeJSON(w, http.StatusForbidden, payload)
	case errors.Is(err, tenancy.ErrConflict):
		payload["error"] = "resource already exists"
		payload["code"] = "conflict"
		writeJSON(w, http.StatusConflict, payload)
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// publishDecision mirrors the pipeline outcome onto the operator event feed.
func (a *API) publishDecision(r *http.Request, stage, outcome string, principal tenancy.Principal) {
	evt := events.Event{
		Stage:         stage,
		Outcome:       outcome,
		IdentityID:    principal.Identity.ID,
		Impersonating: principal.Impersonating,
		RequestID:     RequestIDFromContext(r.Context()),
	}
	if principal.HasTenant() {
		evt.TenantID = principal.Tenant.ID
	}
	a.events.Publish(evt)
}

func decisionOutcome(err error) string {
	switch {
	case errors.Is(err, tenancy.ErrTenantNotFound):
		return "tenant_not_found"
	case errors.Is(err, tenancy.ErrTenantInactive):
		return "tenant_inactive"
	case errors.Is(err, tenancy.ErrSubscriptionSuspended):
		return "subscription_suspended"
	case errors.Is(err, tenancy.ErrSubscriptionRequired):
		return "subscription_required"
	case errors.Is(err, tenancy.ErrPlanLimitExceeded):
		return "plan_limit_exceeded"
	case errors.Is(err, tenancy.ErrPermissionDenied):
		return "permission_denied"
	default:
		return "error"
	}
}
