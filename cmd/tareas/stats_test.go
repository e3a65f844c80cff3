package main

import (
	"strings"
	"testing"

	"github.com/amonks/tareas/core"
)

func TestFormatStatsShowsBothPanels(t *testing.T) {
	got := formatStats(core.Stats{
		Users: core.UserStats{Total: 3, Admins: 1, Standard: 2, WithoutPassword: 1},
		Tasks: core.TaskStats{Total: 5, Pending: 4, Finished: 1, Unassigned: 2},
	})

	lines := strings.Split(got, "\n")
	find := func(label string) string {
		t.Helper()
		for _, line := range lines {
			if strings.Contains(line, label) {
				return line
			}
		}
		t.Fatalf("expected a line containing %q, got:\n%s", label, got)
		return ""
	}

	if line := find("Users"); !strings.Contains(line, "Tasks") {
		t.Fatalf("expected panels side by side, got %q", line)
	}
	if fields := strings.Fields(find("Without password")); !containsAll(fields, "password", "1", "Unassigned", "2") {
		t.Fatalf("unexpected row %q", find("Without password"))
	}
	if fields := strings.Fields(find("Admins")); !containsAll(fields, "1", "Pending", "4") {
		t.Fatalf("unexpected row %q", find("Admins"))
	}
}

func containsAll(fields []string, values ...string) bool {
	for _, value := range values {
		found := false
		for _, field := range fields {
			if field == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
