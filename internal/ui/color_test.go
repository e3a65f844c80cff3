package ui

import "testing"

func TestColorDisabledWithNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if got := Status("finished"); got != "finished" {
		t.Fatalf("expected plain status, got %q", got)
	}
	if got := Name("alice"); got != "alice" {
		t.Fatalf("expected plain name, got %q", got)
	}
}
