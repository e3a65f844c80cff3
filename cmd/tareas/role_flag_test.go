package main

import (
	"strings"
	"testing"

	"github.com/amonks/tareas/user"
)

func TestRoleValueDefaultsAndParses(t *testing.T) {
	var role user.Role
	value := newRoleValue(&role, user.RoleStandard)
	if role != user.RoleStandard {
		t.Fatalf("expected default role %q, got %q", user.RoleStandard, role)
	}

	if err := value.Set(" Admin "); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if role != user.RoleAdmin {
		t.Fatalf("expected admin, got %q", role)
	}
	if value.String() != string(user.RoleAdmin) {
		t.Fatalf("expected String to report admin, got %q", value.String())
	}

	if err := value.Set("user"); err != nil {
		t.Fatalf("set user alias: %v", err)
	}
	if role != user.RoleStandard {
		t.Fatalf("expected user to mean standard, got %q", role)
	}
}

func TestRoleValueRejectsUnknownRole(t *testing.T) {
	var role user.Role
	value := newRoleValue(&role, user.RoleStandard)

	err := value.Set("owner")
	if err == nil {
		t.Fatal("expected error for unknown role")
	}
	if role != user.RoleStandard {
		t.Fatalf("expected role to stay standard, got %q", role)
	}
	if value.Type() != "role" {
		t.Fatalf("expected type role, got %q", value.Type())
	}
}

func TestRoleUsageListsRoles(t *testing.T) {
	usage := roleUsage("Role")
	for _, role := range user.ValidRoles() {
		if !strings.Contains(usage, string(role)) {
			t.Fatalf("expected usage %q to mention %q", usage, role)
		}
	}
}
