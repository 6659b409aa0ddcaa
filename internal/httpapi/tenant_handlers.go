package httpapi

import (
	"errors"
	"net/http"
	"time"

	"tenantcore.org/internal/tenancy"
)

// handleTenant returns the caller's resolved tenant context: who they are,
// which tenant they act on, and the subscription backing it.
func (a *API) handleTenant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.principalFrom(w, r)
	if !ok {
		return
	}
	resp := map[string]any{
		"identity_id":   principal.Identity.ID,
		"impersonating": principal.Impersonating,
	}
	if principal.Role != "" {
		resp["role"] = principal.Role
	}
	if principal.SubsidiaryID != "" {
		resp["subsidiary_id"] = principal.SubsidiaryID
	}
	if !principal.HasTenant() {
		resp["tenant"] = nil
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp["tenant"] = principal.Tenant

	sub, err := a.tenants.CurrentSubscription(r.Context(), principal.Tenant.ID, time.Now().UTC())
	switch {
	case err == nil:
		resp["subscription"] = sub
	case errors.Is(err, tenancy.ErrNotFound):
		resp["subscription"] = nil
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
