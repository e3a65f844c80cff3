package editor

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestCommandPrefersVisual(t *testing.T) {
	t.Setenv("VISUAL", "code --wait")
	t.Setenv("EDITOR", "nano")

	if got := Command(); !slices.Equal(got, []string{"code", "--wait"}) {
		t.Fatalf("expected VISUAL command, got %q", got)
	}
}

func TestCommandFallsBack(t *testing.T) {
	t.Setenv("VISUAL", "  ")
	t.Setenv("EDITOR", "nano")
	if got := Command(); !slices.Equal(got, []string{"nano"}) {
		t.Fatalf("expected EDITOR command, got %q", got)
	}

	t.Setenv("EDITOR", "")
	if got := Command(); !slices.Equal(got, []string{"vi"}) {
		t.Fatalf("expected vi fallback, got %q", got)
	}
}

func TestEditTaskUsesEditorOutput(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-editor")
	body := "#!/bin/sh\nprintf 'name = \"Audit\"\\nassign = [\"alice\"]\\n---\\nReview the logs.\\n' > \"$1\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write editor: %v", err)
	}
	t.Setenv("VISUAL", script)

	parsed, err := EditTask(TaskData{Name: "Draft"})
	if err != nil {
		t.Fatalf("edit task: %v", err)
	}
	if parsed.Name != "Audit" {
		t.Fatalf("expected edited name, got %q", parsed.Name)
	}
	if !slices.Equal(parsed.Assign, []string{"alice"}) {
		t.Fatalf("expected alice assigned, got %q", parsed.Assign)
	}
	if strings.TrimSpace(parsed.Description) != "Review the logs." {
		t.Fatalf("unexpected description %q", parsed.Description)
	}
}

func TestEditReportsEditorFailure(t *testing.T) {
	t.Setenv("VISUAL", "false")

	err := Edit(filepath.Join(t.TempDir(), "task.md"))
	if err == nil {
		t.Fatal("expected error from failing editor")
	}
	if !strings.Contains(err.Error(), "task not saved") {
		t.Fatalf("unexpected error %v", err)
	}
}
