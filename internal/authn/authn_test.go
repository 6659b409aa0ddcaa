package authn

import (
	"errors"
	"testing"
	"time"

	"tenantcore.org/internal/tenancy"
)

func setSecret(t *testing.T) {
	t.Helper()
	ResetSecretForTests()
	t.Setenv("TENANTCORE_AUTH_SECRET", "unit-test-secret")
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndParseIdentity(t *testing.T) {
	setSecret(t)

	identity := tenancy.Identity{
		ID:               "user-42",
		InternalOperator: true,
		OperatorGroups:   []string{"Vendedor", "Vendedor", " SuperAdmin "},
	}
	token, err := GenerateToken(identity, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	parsed, err := ParseIdentity(token)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if parsed.ID != "user-42" {
		t.Fatalf("unexpected subject: %s", parsed.ID)
	}
	if !parsed.InternalOperator {
		t.Fatal("expected internal operator flag")
	}
	if len(parsed.OperatorGroups) != 2 {
		t.Fatalf("expected deduped groups, got %v", parsed.OperatorGroups)
	}
}

func TestParseIdentityRejectsGarbage(t *testing.T) {
	setSecret(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ParseIdentity(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestParseIdentityRejectsExpired(t *testing.T) {
	setSecret(t)

	token, err := GenerateToken(tenancy.Identity{ID: "u1"}, time.Millisecond)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseIdentity(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	ResetSecretForTests()
	t.Setenv("TENANTCORE_AUTH_SECRET", "")
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken(tenancy.Identity{ID: "u1"}, time.Minute); err == nil {
		t.Fatal("expected error without configured secret")
	}
}
