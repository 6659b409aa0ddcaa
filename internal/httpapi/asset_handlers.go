package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tenantcore.org/internal/assets"
	"tenantcore.org/internal/audit"
	"tenantcore.org/internal/ids"
	"tenantcore.org/internal/obs"
	"tenantcore.org/internal/tenancy"
)

type createAssetRequest struct {
	Name         string `json:"name"`
	SubsidiaryID string `json:"subsidiary_id"`
	Category     string `json:"category"`
}

type listAssetsResponse struct {
	Items []assets.Asset `json:"items"`
	AsOf  time.Time      `json:"as_of"`
}

func (a *API) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAssets(w, r)
	case http.MethodPost:
		a.createAsset(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// listAssets applies the visibility scope: tenant isolation first, then the
// subsidiary restriction unless the role has global view.
func (a *API) listAssets(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principalFrom(w, r)
	if !ok {
		return
	}
	if !a.requireTenant(w, r, principal) {
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	scope := tenancy.ScopeFor(a.cfg, principal)
	obs.ObserveDecision("scope", scopeOutcome(scope))
	items, err := a.assets.List(r.Context(), scope, limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if items == nil {
		items = []assets.Asset{}
	}
	writeJSON(w, http.StatusOK, listAssetsResponse{Items: items, AsOf: time.Now().UTC()})
}

func (a *API) createAsset(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principalFrom(w, r)
	if !ok {
		return
	}
	if !a.requireTenant(w, r, principal) {
		return
	}
	if err := a.authorizer.RequireCapability(principal, assets.CapCreate); err != nil {
		obs.ObserveDecision("guard", decisionOutcome(err))
		a.writeAuthzError(w, r, err)
		return
	}
	obs.ObserveDecision("guard", "allow")

	var req createAssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	// The count is computed here, by the collaborator owning the resource;
	// the gate only compares it against the plan bound.
	count, err := a.assets.CountByTenant(r.Context(), principal.Tenant.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if err := a.limits.CheckCreate(r.Context(), principal, assets.LimitKey, count); err != nil {
		obs.ObserveDecision("limit", decisionOutcome(err))
		if errors.Is(err, tenancy.ErrPlanLimitExceeded) {
			_ = audit.LogEvent(r.Context(), "plan.limit_denied", map[string]any{
				"limit_key": assets.LimitKey,
				"current":   count,
			})
		}
		a.writeAuthzError(w, r, err)
		return
	}
	obs.ObserveDecision("limit", "allow")

	subsidiary := strings.TrimSpace(req.SubsidiaryID)
	if subsidiary == "" {
		subsidiary = principal.SubsidiaryID
	}
	asset := assets.Asset{
		ID:           ids.New(),
		TenantID:     principal.Tenant.ID,
		SubsidiaryID: subsidiary,
		Name:         req.Name,
		Category:     strings.TrimSpace(req.Category),
	}
	if err := a.assets.Create(r.Context(), &asset); err != nil {
		if errors.Is(err, tenancy.ErrConflict) {
			a.writeAuthzError(w, r, err)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "asset.create", map[string]any{
		"asset_id": asset.ID,
		"name":     asset.Name,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/assets/%s", asset.ID))
	writeJSON(w, http.StatusCreated, asset)
}

func (a *API) handleAssetScoped(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/assets/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}

	principal, ok := a.principalFrom(w, r)
	if !ok {
		return
	}
	if !a.requireTenant(w, r, principal) {
		return
	}
	// Coarse role restriction, independent of the capability table.
	if err := a.authorizer.RequireRoleIn(principal, "admin", "owner"); err != nil {
		obs.ObserveDecision("guard", decisionOutcome(err))
		a.writeAuthzError(w, r, err)
		return
	}
	obs.ObserveDecision("guard", "allow")

	if err := a.assets.Delete(r.Context(), principal.Tenant.ID, id); err != nil {
		if errors.Is(err, tenancy.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "asset.delete", map[string]any{"asset_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) principalFrom(w http.ResponseWriter, r *http.Request) (tenancy.Principal, bool) {
	principal, ok := tenancy.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return tenancy.Principal{}, false
	}
	return principal, true
}

func (a *API) requireTenant(w http.ResponseWriter, r *http.Request, principal tenancy.Principal) bool {
	if principal.HasTenant() {
		return true
	}
	payload := map[string]any{
		"error": "an active tenant is required",
		"code":  "tenant_required",
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, http.StatusForbidden, payload)
	return false
}

func scopeOutcome(scope tenancy.Scope) string {
	switch {
	case scope.Empty:
		return "empty"
	case scope.All:
		return "tenant_wide"
	default:
		return "subsidiary"
	}
}
