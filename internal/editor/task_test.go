package editor

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/amonks/tareas/task"
)

func TestRenderTaskTOML(t *testing.T) {
	content, err := RenderTaskTOML(TaskData{Name: "Deploy", Assign: []string{"alice", "bob"}, Description: "Ship it"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{`name = "Deploy"`, `assign = ["alice", "bob"]`, "---\nShip it\n"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in:\n%s", want, content)
		}
	}
}

func TestRenderThenParseKeepsValues(t *testing.T) {
	content, err := RenderTaskTOML(TaskData{Name: "Write \"docs\"", Description: "README\n\nand guides"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	parsed, err := ParseTaskTOML(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Name != `Write "docs"` {
		t.Fatalf("unexpected name %q", parsed.Name)
	}
	if parsed.Description != "README\n\nand guides" {
		t.Fatalf("unexpected description %q", parsed.Description)
	}
	if len(parsed.Assign) != 0 {
		t.Fatalf("expected no assignees, got %v", parsed.Assign)
	}
}

func TestParseTaskTOMLTrimsAssignees(t *testing.T) {
	parsed, err := ParseTaskTOML("name = \" Deploy \"\nassign = [\" alice \", \"\"]\n---\nShip\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Name != "Deploy" {
		t.Fatalf("unexpected name %q", parsed.Name)
	}
	if !slices.Equal(parsed.Assign, []string{"alice"}) {
		t.Fatalf("unexpected assignees %v", parsed.Assign)
	}
}

func TestParseTaskTOMLValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    error
	}{
		{name: "empty name", content: "name = \"\"\n---\nShip\n", want: task.ErrEmptyName},
		{name: "empty description", content: "name = \"Deploy\"\n---\n\n", want: task.ErrEmptyDescription},
		{name: "no separator", content: "name = \"Deploy\"\n", want: task.ErrEmptyDescription},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseTaskTOML(tc.content); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := ParseTaskTOML("name = [\n---\nShip\n"); err == nil {
		t.Fatal("expected TOML error")
	}
}

func TestCreateTaskTempFileExtension(t *testing.T) {
	file, err := createTaskTempFile()
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer os.Remove(file.Name())
	file.Close()

	if filepath.Ext(file.Name()) != ".md" {
		t.Fatalf("expected .md extension, got %s", file.Name())
	}
}
