package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/amonks/tareas/internal/markdown"
	"github.com/amonks/tareas/task"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type taskItem struct {
	task task.Task
}

func (item taskItem) FilterValue() string {
	return item.task.Name
}

type taskItemDelegate struct {
	normalStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	finishedStyle lipgloss.Style
}

func newTaskItemDelegate() taskItemDelegate {
	return taskItemDelegate{
		normalStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")),
		finishedStyle: valueMuted,
	}
}

func (d taskItemDelegate) Height() int                             { return 1 }
func (d taskItemDelegate) Spacing() int                            { return 0 }
func (d taskItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d taskItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(taskItem)
	if !ok {
		return
	}

	line := formatTaskItem(item.task, m.Width())
	style := d.normalStyle
	if item.task.IsFinished() {
		style = d.finishedStyle
	}
	if index == m.Index() {
		style = d.selectedStyle
	}
	fmt.Fprint(w, style.Render(line))
}

func formatTaskItem(t task.Task, width int) string {
	marker := "[ ]"
	if t.IsFinished() {
		marker = "[x]"
	}
	line := marker + " " + t.Name
	if len(t.AssignedUsers) > 0 {
		line += " (" + strings.Join(t.AssignedUsers, ", ") + ")"
	}
	return truncateText(line, width)
}

type taskDetailModel struct {
	task     *task.Task
	viewport viewport.Model
	width    int
}

func newTaskDetailModel() taskDetailModel {
	return taskDetailModel{viewport: viewport.New(0, 0)}
}

func (m *taskDetailModel) SetSize(width, height int) {
	m.width = width
	m.viewport.Width = width
	m.viewport.Height = height
	m.refresh()
}

// SetTask shows t, or the empty state when t is nil.
func (m *taskDetailModel) SetTask(t *task.Task) {
	if t == nil {
		m.task = nil
	} else {
		clone := t.Clone()
		m.task = &clone
	}
	m.refresh()
	m.viewport.GotoTop()
}

func (m *taskDetailModel) refresh() {
	if m.task == nil {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(renderTaskDetail(*m.task, m.width))
}

func (m taskDetailModel) Update(msg tea.Msg) (taskDetailModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m taskDetailModel) View() string {
	if m.task == nil {
		return valueMuted.Render("No task selected.")
	}
	return m.viewport.View()
}

func renderTaskDetail(t task.Task, width int) string {
	status := pendingStyle.Render(string(t.Status))
	if t.IsFinished() {
		status = finishedStyle.Render(string(t.Status))
	}
	assigned := "-"
	if len(t.AssignedUsers) > 0 {
		assigned = strings.Join(t.AssignedUsers, ", ")
	}

	lines := []string{
		labelStyle.Render(t.Name),
		"",
		fmt.Sprintf("%s: %s", labelStyle.Render("Status"), status),
		formatDetailRow("Created", formatTime(t.CreatedAt)),
		formatDetailRow("Finished", formatTimePtr(t.FinishedAt)),
		formatDetailRow("Assigned", assigned),
		"",
		labelStyle.Render("Description"),
		markdown.Render(width, 0, t.Description),
		"",
		labelStyle.Render(fmt.Sprintf("Comments (%d)", len(t.Comments))),
	}
	if len(t.Comments) == 0 {
		lines = append(lines, valueMuted.Render("No comments yet."))
	}
	for _, comment := range t.Comments {
		header := fmt.Sprintf("%s %s", labelStyle.Render(comment.Author), valueMuted.Render(formatTime(comment.Timestamp)))
		lines = append(lines, header, markdown.Render(width, 2, comment.Text))
	}
	return strings.Join(lines, "\n")
}

func formatDetailRow(label, value string) string {
	return fmt.Sprintf("%s: %s", labelStyle.Render(label), valueMuted.Render(value))
}

func truncateText(value string, width int) string {
	if width <= 0 {
		return value
	}
	return runewidth.Truncate(value, width, "...")
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format(task.TimestampLayout)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return formatTime(*value)
}
