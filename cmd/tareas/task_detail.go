package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/markdown"
	"github.com/amonks/tareas/internal/ui"
	"github.com/amonks/tareas/task"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const taskDetailLineWidth = 80

// now is replaced in tests.
var now = time.Now

// printTaskDetail prints a task with its description and comments.
func printTaskDetail(t task.Task) {
	fmt.Print(formatTaskDetail(t))
}

func formatTaskDetail(t task.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:     %s\n", ui.Name(t.Name))
	fmt.Fprintf(&b, "Status:   %s\n", ui.Status(string(t.Status)))
	fmt.Fprintf(&b, "Created:  %s\n", ui.FormatTimestamp(&t.CreatedAt))
	if t.FinishedAt != nil {
		fmt.Fprintf(&b, "Finished: %s\n", ui.FormatTimestamp(t.FinishedAt))
	}
	fmt.Fprintf(&b, "Assigned: %s\n", formatAssigned(t.AssignedUsers))

	description := markdown.Render(taskDetailLineWidth, 2, t.Description)
	if description == "" {
		description = "  -"
	}
	fmt.Fprintf(&b, "\nDescription:\n%s\n", description)

	if len(t.Comments) == 0 {
		b.WriteString("\nNo comments.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "\nComments (%d):\n", len(t.Comments))
	for _, comment := range t.Comments {
		fmt.Fprintf(&b, "  %s, %s:\n", ui.Name(comment.Author), ui.FormatTimestamp(&comment.Timestamp))
		b.WriteString(formatComment(comment.Text))
		b.WriteString("\n")
	}
	return b.String()
}

func formatComment(text string) string {
	wrapped := wordwrap.String(strings.TrimSpace(text), taskDetailLineWidth-4)
	return indent.String(wrapped, 4)
}

func formatAssigned(users []string) string {
	if len(users) == 0 {
		return "-"
	}
	return strings.Join(users, ", ")
}

func formatTaskTable(tasks []task.Task) string {
	table := ui.NewTable("NAME", "STATUS", "ASSIGNED", "COMMENTS", "AGE")
	current := now()
	for _, t := range tasks {
		table.AddRow(
			ui.Name(t.Name),
			ui.Status(string(t.Status)),
			formatAssigned(t.AssignedUsers),
			strconv.Itoa(len(t.Comments)),
			ui.FormatTimeAgo(t.CreatedAt, current),
		)
	}
	return table.String()
}

func formatArchiveTable(records []task.ArchiveRecord) string {
	table := ui.NewTable("NAME", "FINISHED", "ASSIGNED", "COMMENTS")
	for _, record := range records {
		table.AddRow(
			ui.Name(record.Name),
			record.FinishedAt,
			formatAssigned(record.AssignedUsers),
			strconv.Itoa(len(record.Comments)),
		)
	}
	return table.String()
}

func taskEmptyListMessage(filter core.TaskFilter, includeAll bool) string {
	var qualifiers []string
	if filter.Status != "" {
		qualifiers = append(qualifiers, "with status "+string(filter.Status))
	}
	if filter.User != "" {
		qualifiers = append(qualifiers, "assigned to "+filter.User)
	}
	message := "No tasks found"
	if len(qualifiers) > 0 {
		message += " " + strings.Join(qualifiers, " ")
	}
	message += "."
	if filter.Status == task.StatusPending && !includeAll {
		message += " Use --all to include finished tasks."
	}
	return message
}
