package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tenantcore.org/internal/obs"
	"tenantcore.org/internal/tenancy"
)

// Operator capabilities consumed by the admin surface. The groups granting
// them are deployment configuration, not code.
const (
	capTenantView   = "tenant.view"
	capTenantManage = "tenant.manage"
)

func (a *API) handleAdminTenants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.principalFrom(w, r)
	if !ok {
		return
	}
	if err := a.authorizer.RequireOperatorCapability(principal, capTenantView); err != nil {
		obs.ObserveDecision("guard", decisionOutcome(err))
		a.writeAuthzError(w, r, err)
		return
	}
	obs.ObserveDecision("guard", "allow")

	tenants, err := a.tenants.ListTenants(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if tenants == nil {
		tenants = []tenancy.Tenant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tenants})
}

func (a *API) handleAdminTenantScoped(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/admin/tenants/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.principalFrom(w, r)
	if !ok {
		return
	}
	if err := a.authorizer.RequireOperatorCapability(principal, capTenantView); err != nil {
		obs.ObserveDecision("guard", decisionOutcome(err))
		a.writeAuthzError(w, r, err)
		return
	}
	obs.ObserveDecision("guard", "allow")

	tenant, err := a.tenants.TenantByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, tenancy.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	resp := map[string]any{"tenant": tenant}
	sub, err := a.tenants.CurrentSubscription(r.Context(), tenant.ID, time.Now().UTC())
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

// handleImpersonationPreflight lets operator tooling ask whether the caller
// may impersonate before it offers a tenant picker.
func (a *API) handleImpersonationPreflight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.principalFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"allowed": a.authorizer.CanImpersonate(principal.Identity),
	})
}

// handleAdminEvents streams authorization decisions to operator tooling as
// server-sent events until the client disconnects.
func (a *API) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.principalFrom(w, r)
	if !ok {
		return
	}
	if err := a.authorizer.RequireOperatorCapability(principal, capTenantView); err != nil {
		obs.ObserveDecision("guard", decisionOutcome(err))
		a.writeAuthzError(w, r, err)
		return
	}
	obs.ObserveDecision("guard", "allow")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for evt := range a.events.Subscribe(r.Context()) {
		data, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}
