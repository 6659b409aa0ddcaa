package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"tenantcore.org/internal/obs"
	"tenantcore.org/internal/tenancy"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(original) })
	return &buf
}

func TestLogEvent(t *testing.T) {
	buf := captureLog(t)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = tenancy.ContextWithPrincipal(ctx, tenancy.Principal{
		Identity: tenancy.Identity{ID: "user-42"},
		Tenant:   &tenancy.Tenant{ID: "t1", Active: true},
		Role:     "admin",
	})

	if err := LogEvent(ctx, "audit.test", map[string]any{"foo": "bar"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	line := buf.String()
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "audit.test" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["identity_id"] != "user-42" {
		t.Fatalf("unexpected identity id: %v", entry["identity_id"])
	}
	if entry["tenant_id"] != "t1" {
		t.Fatalf("unexpected tenant id: %v", entry["tenant_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["foo"] != "bar" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogImpersonation(t *testing.T) {
	buf := captureLog(t)

	principal := tenancy.Principal{
		Identity:      tenancy.Identity{ID: "op-1", InternalOperator: true},
		Tenant:        &tenancy.Tenant{ID: "t9"},
		Impersonating: true,
	}
	ctx := tenancy.ContextWithPrincipal(context.Background(), principal)
	if err := LogImpersonation(ctx, principal); err != nil {
		t.Fatalf("LogImpersonation: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["event"] != "tenant.impersonate" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["impersonating"] != true {
		t.Fatalf("expected impersonating marker, got %v", entry)
	}

	// Non-impersonating principals produce no event.
	buf.Reset()
	if err := LogImpersonation(ctx, tenancy.Principal{Identity: tenancy.Identity{ID: "u1"}}); err != nil {
		t.Fatalf("LogImpersonation: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %s", buf.String())
	}
}
