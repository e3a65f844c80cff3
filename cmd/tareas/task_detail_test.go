package main

import (
	"strings"
	"testing"
	"time"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/task"
)

func detailFixture(t *testing.T) task.Task {
	t.Helper()

	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	item, err := task.New("Deploy", "Ship the release.", created)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := item.Assign("alice"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := item.Assign("bob"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	return *item
}

func TestFormatTaskDetailWithoutComments(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := formatTaskDetail(detailFixture(t))
	for _, want := range []string{
		"Name:     Deploy\n",
		"Status:   pending\n",
		"Created:  2026-03-01 09:30:00\n",
		"Assigned: alice, bob\n",
		"Description:\n",
		"Ship the release.",
		"No comments.\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected detail to contain %q, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Finished:") {
		t.Fatalf("expected no finished line for a pending task, got:\n%s", got)
	}
}

func TestFormatTaskDetailWithComments(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	item := detailFixture(t)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if err := item.AddComment("Started the rollout.", "alice", at); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if err := item.Finish(at.Add(time.Hour)); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got := formatTaskDetail(item)
	for _, want := range []string{
		"Status:   finished\n",
		"Finished: 2026-03-02 11:00:00\n",
		"Comments (1):\n",
		"  alice, 2026-03-02 10:00:00:\n",
		"    Started the rollout.\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected detail to contain %q, got:\n%s", want, got)
		}
	}
}

func TestFormatCommentWrapsLongText(t *testing.T) {
	text := strings.Repeat("word ", 40)
	got := formatComment(text)
	lines := strings.Split(got, "\n")
	if len(lines) < 2 {
		t.Fatalf("expected wrapped comment, got %q", got)
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "    ") {
			t.Fatalf("expected indented line, got %q", line)
		}
		if len(line) > taskDetailLineWidth {
			t.Fatalf("expected line within %d columns, got %d: %q", taskDetailLineWidth, len(line), line)
		}
	}
}

func TestFormatTaskTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	prev := now
	t.Cleanup(func() { now = prev })
	now = func() time.Time { return time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC) }

	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	unassigned, err := task.New("Audit", "Review logs.", created)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	got := formatTaskTable([]task.Task{*unassigned, detailFixture(t)})
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", got)
	}
	if fields := strings.Fields(lines[0]); strings.Join(fields, " ") != "NAME STATUS ASSIGNED COMMENTS AGE" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if fields := strings.Fields(lines[1]); fields[0] != "Audit" || fields[2] != "-" || fields[3] != "0" {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if !strings.Contains(lines[2], "alice, bob") || !strings.Contains(lines[2], "2h ago") {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func TestTaskEmptyListMessage(t *testing.T) {
	cases := []struct {
		name       string
		filter     core.TaskFilter
		includeAll bool
		want       string
	}{
		{
			name: "all tasks",
			want: "No tasks found.",
		},
		{
			name:   "default pending",
			filter: core.TaskFilter{Status: task.StatusPending},
			want:   "No tasks found with status pending. Use --all to include finished tasks.",
		},
		{
			name:       "explicit pending",
			filter:     core.TaskFilter{Status: task.StatusPending},
			includeAll: true,
			want:       "No tasks found with status pending.",
		},
		{
			name:       "finished for user",
			filter:     core.TaskFilter{Status: task.StatusFinished, User: "alice"},
			includeAll: true,
			want:       "No tasks found with status finished assigned to alice.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := taskEmptyListMessage(tc.filter, tc.includeAll); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
