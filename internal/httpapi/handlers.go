package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tenantcore.org/api/spec"
	"tenantcore.org/internal/assets"
	"tenantcore.org/internal/events"
	"tenantcore.org/internal/obs"
	"tenantcore.org/internal/tenancy"
)

// ReadyProbe — readiness check (for example a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// TenantDirectory backs the internal-operator admin surface.
type TenantDirectory interface {
	ListTenants(ctx context.Context) ([]tenancy.Tenant, error)
	TenantByID(ctx context.Context, id string) (*tenancy.Tenant, error)
	CurrentSubscription(ctx context.Context, tenantID string, now time.Time) (*tenancy.Subscription, error)
}

// Deps collects the collaborators the HTTP layer is wired with.
type Deps struct {
	ReadyProbe ReadyProbe
	Version    string
	Config     *tenancy.Config
	Resolver   *tenancy.Resolver
	Gate       *tenancy.Gate
	Limits     *tenancy.LimitGate
	Assets     assets.Store
	Tenants    TenantDirectory
}

// API — HTTP layer hosting the resolution pipeline.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	cfg        *tenancy.Config
	resolver   *tenancy.Resolver
	gate       *tenancy.Gate
	limits     *tenancy.LimitGate
	authorizer *tenancy.Authorizer
	assets     assets.Store
	tenants    TenantDirectory
	events     *events.Stream
}

func New(deps Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: deps.ReadyProbe,
		version:    deps.Version,
		cfg:        deps.Config,
		resolver:   deps.Resolver,
		gate:       deps.Gate,
		limits:     deps.Limits,
		authorizer: tenancy.NewAuthorizer(deps.Config),
		assets:     deps.Assets,
		tenants:    deps.Tenants,
		events:     events.New(),
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// tenant-scoped surface
	a.mux.HandleFunc("/v1/tenant", a.handleTenant)
	a.mux.HandleFunc("/v1/assets", a.handleAssets)
	a.mux.HandleFunc("/v1/assets/", a.handleAssetScoped)

	// internal-operator surface
	a.mux.HandleFunc("/v1/admin/tenants", a.handleAdminTenants)
	a.mux.HandleFunc("/v1/admin/tenants/", a.handleAdminTenantScoped)
	a.mux.HandleFunc("/v1/admin/impersonation", a.handleImpersonationPreflight)
	a.mux.HandleFunc("/v1/admin/events", a.handleAdminEvents)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withTenant(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tenantcore-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "tenantcore-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between 1 and 1000")
	}
	return val, nil
}
