package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"tenantcore.org/internal/obs"
	"tenantcore.org/internal/tenancy"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// requestIDFromContext extracts the audit request id from context if present.
func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and principal
// context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if principal, ok := tenancy.PrincipalFromContext(ctx); ok {
		entry["identity_id"] = principal.Identity.ID
		if principal.HasTenant() {
			entry["tenant_id"] = principal.Tenant.ID
		}
		if principal.Impersonating {
			entry["impersonating"] = true
		}
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}

// LogImpersonation records an operator entering a tenant's context. Called
// by the request pipeline whenever resolution sets the impersonation flag.
func LogImpersonation(ctx context.Context, principal tenancy.Principal) error {
	if !principal.Impersonating || !principal.HasTenant() {
		return nil
	}
	return LogEvent(ctx, "tenant.impersonate", map[string]any{
		"operator_id": principal.Identity.ID,
		"tenant_id":   principal.Tenant.ID,
	})
}
