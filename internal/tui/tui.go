// Package tui is an interactive task browser built on bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/task"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrNoBackend is returned by Run when no backend is supplied.
var ErrNoBackend = errors.New("task backend is required")

type tabKind int

const (
	tabMine tabKind = iota
	tabAll
)

type focusPane int

const (
	focusList focusPane = iota
	focusDetail
)

type statusLevel int

const (
	statusNone statusLevel = iota
	statusInfo
	statusError
)

type modalKind int

const (
	modalNone modalKind = iota
	modalHelp
	modalFinish
	modalReactivate
	modalComment
)

type model struct {
	ctx          context.Context
	backend      Backend
	width        int
	height       int
	activeTab    tabKind
	focus        focusPane
	showFinished bool
	taskList     list.Model
	detail       taskDetailModel
	modal        confirmModal
	input        textinput.Model
	stats        *core.Stats
	status       string
	statusLevel  statusLevel
	selected     string
}

type confirmModal struct {
	kind        modalKind
	task        string
	message     string
	confirmText string
	cancelText  string
	selected    int
}

type tasksLoadedMsg struct {
	tasks []task.Task
	err   error
}

type statsLoadedMsg struct {
	stats core.Stats
	err   error
}

type taskChangedMsg struct {
	task    task.Task
	message string
	err     error
}

// Run starts the browser and blocks until the user quits.
func Run(ctx context.Context, backend Backend) error {
	if backend == nil {
		return ErrNoBackend
	}
	if ctx == nil {
		ctx = context.Background()
	}
	program := tea.NewProgram(newModel(ctx, backend), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func newModel(ctx context.Context, backend Backend) model {
	taskList := list.New(nil, newTaskItemDelegate(), 0, 0)
	taskList.SetShowStatusBar(false)
	taskList.SetFilteringEnabled(false)
	taskList.SetShowHelp(false)
	taskList.SetShowPagination(false)

	input := textinput.New()
	input.Placeholder = "Comment"
	input.CharLimit = 500

	m := model{
		ctx:       ctx,
		backend:   backend,
		activeTab: tabMine,
		focus:     focusList,
		taskList:  taskList,
		detail:    newTaskDetailModel(),
		modal:     confirmModal{kind: modalNone},
		input:     input,
	}
	m.taskList.Title = m.listTitle()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadTasksCmd(), m.loadStatsCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tasksLoadedMsg:
		m.handleTasksLoaded(msg)
		return m, nil
	case statsLoadedMsg:
		m.handleStatsLoaded(msg)
		return m, nil
	case taskChangedMsg:
		return m.handleTaskChanged(msg)
	}

	if m.modal.kind != modalNone {
		return m.updateModal(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		updated, cmd, handled := m.handleKey(key)
		if handled {
			return updated, cmd
		}
		m = updated
	}

	var cmd tea.Cmd
	if m.focus == focusList {
		m.taskList, cmd = m.taskList.Update(msg)
		m.updateSelection()
	} else {
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading tasks..."
	}
	contentHeight := max(m.height-4, 1)
	leftWidth, rightWidth := splitWidths(m.width)

	listPane := m.renderPane(m.taskList.View(), leftWidth, contentHeight, m.focus == focusList)
	detailPane := m.renderPane(m.detail.View(), rightWidth, contentHeight, m.focus == focusDetail)
	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)

	view := strings.Join([]string{m.renderTabs(), m.renderStatsLine(), m.renderHelpLine(), content, m.renderStatusLine()}, "\n")
	if m.modal.kind != modalNone {
		view = m.renderModalOverlay()
	}
	return view
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd, bool) {
	key := msg.String()
	if updated, cmd, handled := m.handleListNavigation(key); handled {
		return updated, cmd, true
	}
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit, true
	case "?":
		m.modal = confirmModal{kind: modalHelp}
		return m, nil, true
	case "tab", "shift+tab", "[", "]":
		if m.activeTab == tabMine {
			return m.activateTab(tabAll)
		}
		return m.activateTab(tabMine)
	case "1":
		return m.activateTab(tabMine)
	case "2":
		return m.activateTab(tabAll)
	case "enter":
		if m.focus == focusList && m.detail.task != nil {
			m.focus = focusDetail
		}
		return m, nil, true
	case "esc":
		m.focus = focusList
		return m, nil, true
	case "h":
		m.showFinished = !m.showFinished
		m.taskList.Title = m.listTitle()
		return m, m.loadTasksCmd(), true
	case "R", "ctrl+r":
		m.setStatus("Refreshing...", statusNone)
		return m, tea.Batch(m.loadTasksCmd(), m.loadStatsCmd()), true
	case "f":
		return m.promptStatusChange(modalFinish)
	case "r":
		return m.promptStatusChange(modalReactivate)
	case "c":
		return m.openComment()
	}
	return m, nil, false
}

func (m model) activateTab(target tabKind) (model, tea.Cmd, bool) {
	if m.activeTab == target {
		return m, nil, true
	}
	m.activeTab = target
	m.focus = focusList
	m.taskList.Title = m.listTitle()
	return m, m.loadTasksCmd(), true
}

func (m model) promptStatusChange(kind modalKind) (model, tea.Cmd, bool) {
	item, ok := m.currentItem()
	if !ok {
		m.setStatus("No task selected", statusError)
		return m, nil, true
	}
	name := item.task.Name
	if kind == modalFinish {
		if item.task.IsFinished() {
			m.setStatus(fmt.Sprintf("Task %q is already finished", name), statusError)
			return m, nil, true
		}
		m.modal = confirmModal{
			kind:        modalFinish,
			task:        name,
			message:     fmt.Sprintf("Finish task %q?", name),
			confirmText: "Finish",
			cancelText:  "Cancel",
			selected:    1,
		}
		return m, nil, true
	}
	if !item.task.IsFinished() {
		m.setStatus(fmt.Sprintf("Task %q is not finished", name), statusError)
		return m, nil, true
	}
	m.modal = confirmModal{
		kind:        modalReactivate,
		task:        name,
		message:     fmt.Sprintf("Reactivate task %q?", name),
		confirmText: "Reactivate",
		cancelText:  "Cancel",
		selected:    1,
	}
	return m, nil, true
}

func (m model) openComment() (model, tea.Cmd, bool) {
	item, ok := m.currentItem()
	if !ok {
		m.setStatus("No task selected", statusError)
		return m, nil, true
	}
	m.modal = confirmModal{kind: modalComment, task: item.task.Name}
	m.input.Reset()
	cmd := m.input.Focus()
	return m, cmd, true
}

func (m model) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.modal.kind {
	case modalComment:
		return m.updateCommentModal(msg)
	case modalHelp:
		key, ok := msg.(tea.KeyMsg)
		if !ok {
			return m, nil
		}
		switch key.String() {
		case "?", "esc":
			m.modal = confirmModal{kind: modalNone}
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "left", "right", "tab", "shift+tab":
		m.modal.selected = 1 - m.modal.selected
		return m, nil
	case "y":
		return m.resolveModal(true)
	case "n", "esc":
		return m.resolveModal(false)
	case "enter":
		return m.resolveModal(m.modal.selected == 0)
	}
	return m, nil
}

func (m model) updateCommentModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.input.Blur()
			m.modal = confirmModal{kind: modalNone}
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			name := m.modal.task
			m.input.Blur()
			m.modal = confirmModal{kind: modalNone}
			return m, m.commentCmd(name, text)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) resolveModal(confirm bool) (tea.Model, tea.Cmd) {
	modal := m.modal
	m.modal = confirmModal{kind: modalNone}
	if !confirm {
		return m, nil
	}
	switch modal.kind {
	case modalFinish:
		return m, m.finishCmd(modal.task)
	case modalReactivate:
		return m, m.reactivateCmd(modal.task)
	default:
		return m, nil
	}
}

func (m *model) handleTasksLoaded(msg tasksLoadedMsg) {
	if msg.err != nil {
		m.setStatus(fmt.Sprintf("Failed to load tasks: %v", msg.err), statusError)
		return
	}
	items := make([]list.Item, 0, len(msg.tasks))
	index := 0
	for i, t := range msg.tasks {
		items = append(items, taskItem{task: t})
		if t.Name == m.selected {
			index = i
		}
	}
	m.taskList.SetItems(items)
	if len(items) > 0 {
		m.taskList.Select(index)
	}
	m.updateSelection()
	if m.focus == focusDetail && m.detail.task == nil {
		m.focus = focusList
	}
	if m.statusLevel == statusNone {
		m.setStatus(fmt.Sprintf("%d tasks", len(items)), statusNone)
	}
}

func (m *model) handleStatsLoaded(msg statsLoadedMsg) {
	if msg.err != nil {
		m.setStatus(fmt.Sprintf("Failed to load stats: %v", msg.err), statusError)
		return
	}
	stats := msg.stats
	m.stats = &stats
}

func (m model) handleTaskChanged(msg taskChangedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus(msg.err.Error(), statusError)
		return m, nil
	}
	m.selected = msg.task.Name
	m.setStatus(msg.message, statusInfo)
	return m, tea.Batch(m.loadTasksCmd(), m.loadStatsCmd())
}

func (m *model) updateSelection() {
	item, ok := m.currentItem()
	if !ok {
		m.detail.SetTask(nil)
		return
	}
	m.selected = item.task.Name
	m.detail.SetTask(&item.task)
}

func (m model) currentItem() (taskItem, bool) {
	item := m.taskList.SelectedItem()
	if item == nil {
		return taskItem{}, false
	}
	current, ok := item.(taskItem)
	return current, ok
}

func (m model) handleListNavigation(key string) (model, tea.Cmd, bool) {
	if m.focus != focusList {
		return m, nil, false
	}
	count := len(m.taskList.Items())
	switch key {
	case "up", "k":
		return m.moveListSelection(-1)
	case "down", "j":
		return m.moveListSelection(1)
	case "home":
		return m.moveListSelection(-count)
	case "end":
		return m.moveListSelection(count)
	}
	return m, nil, false
}

func (m model) moveListSelection(delta int) (model, tea.Cmd, bool) {
	count := len(m.taskList.Items())
	if count == 0 {
		return m, nil, true
	}
	current := max(m.taskList.Index(), 0)
	next := min(max(current+delta, 0), count-1)
	if next == current {
		return m, nil, true
	}
	m.taskList.Select(next)
	m.updateSelection()
	return m, nil, true
}

func (m *model) resize() {
	contentHeight := max(m.height-4, 1)
	leftWidth, rightWidth := splitWidths(m.width)
	inner := max(contentHeight-2, 1)
	m.taskList.SetSize(max(leftWidth-4, 1), inner)
	m.detail.SetSize(max(rightWidth-4, 1), inner)
	m.input.Width = max(m.width/2, 20)
}

func splitWidths(width int) (int, int) {
	left := width / 3
	if left < 30 {
		left = 30
	}
	if left > width-20 {
		left = width / 2
	}
	right := width - left
	if right < 20 {
		right = 20
		left = width - right
	}
	return left, right
}

func (m model) listTitle() string {
	title := "My tasks"
	if m.activeTab == tabAll {
		title = "All tasks"
	}
	if m.showFinished {
		return title
	}
	return title + " (pending)"
}

func (m model) renderTabs() string {
	labels := []string{"[1] Mine", "[2] All"}
	parts := make([]string, 0, len(labels))
	for i, label := range labels {
		style := tabInactiveStyle
		if tabKind(i) == m.activeTab {
			style = tabActiveStyle
		}
		parts = append(parts, style.Render(label))
	}
	content := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	hint := valueMuted.Render(fmt.Sprintf("%s | ? for help", m.backend.Actor()))
	spacer := strings.Repeat(" ", max(m.width-lipgloss.Width(content)-lipgloss.Width(hint), 1))
	return tabBarStyle.Width(m.width).Render(content + spacer + hint)
}

func (m model) renderStatsLine() string {
	if m.stats == nil {
		return valueMuted.Render("Loading stats...")
	}
	s := m.stats
	text := fmt.Sprintf("Users %d (%d admin, %d without password) | Tasks %d (%d pending, %d finished, %d unassigned)",
		s.Users.Total, s.Users.Admins, s.Users.WithoutPassword,
		s.Tasks.Total, s.Tasks.Pending, s.Tasks.Finished, s.Tasks.Unassigned)
	return valueMuted.Render(truncateText(text, m.width))
}

func (m model) renderPane(content string, width, height int, focused bool) string {
	style := paneStyle
	if focused {
		style = paneActiveStyle
	}
	return style.Width(max(width, 0)).Height(max(height, 0)).Render(content)
}

func (m model) renderStatusLine() string {
	if strings.TrimSpace(m.status) == "" {
		return ""
	}
	style := valueMuted
	switch m.statusLevel {
	case statusError:
		style = statusErrorStyle
	case statusInfo:
		style = statusSuccessStyle
	}
	return style.Render(truncateText(m.status, m.width))
}

func (m model) renderHelpLine() string {
	text := "Keys: up/down move | enter detail | f finish | r reactivate | c comment | h toggle finished | tab switch | ? help | q quit"
	if m.focus == focusDetail {
		text = "Keys: up/down/pgup/pgdown scroll | esc back | f finish | r reactivate | c comment | ? help | q quit"
	}
	return helpBarStyle.Width(m.width).Render(truncateText(text, m.width))
}

func (m *model) setStatus(text string, level statusLevel) {
	m.status = text
	m.statusLevel = level
}

func (m model) renderModalOverlay() string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.modalView())
}

func (m model) modalView() string {
	switch m.modal.kind {
	case modalHelp:
		return modalStyle.Render(helpContent())
	case modalComment:
		content := strings.Join([]string{
			labelStyle.Render(fmt.Sprintf("Comment on %q", m.modal.task)),
			"",
			m.input.View(),
			"",
			valueMuted.Render("enter to post | esc to cancel"),
		}, "\n")
		return modalStyle.Render(content)
	}
	options := []string{m.modal.confirmText, m.modal.cancelText}
	buttons := make([]string, 0, len(options))
	for i, option := range options {
		style := valueMuted
		if i == m.modal.selected {
			style = selectedBorder
		}
		buttons = append(buttons, style.Render("["+option+"]"))
	}
	content := strings.Join([]string{m.modal.message, "", strings.Join(buttons, " ")}, "\n")
	return modalStyle.Render(content)
}

func helpContent() string {
	sections := []string{
		labelStyle.Render("Global"),
		"q or ctrl+c: quit",
		"1 or 2 / tab: switch between my tasks and all tasks",
		"h: show or hide finished tasks",
		"R or ctrl+r: refresh",
		"?: toggle help",
		"",
		labelStyle.Render("Navigation"),
		"up/down or j/k: move selection",
		"enter: focus detail pane",
		"esc: return to list",
		"",
		labelStyle.Render("Tasks"),
		"f: finish selected task",
		"r: reactivate selected task",
		"c: comment on selected task",
		"",
		labelStyle.Render("Help"),
		"press ? or esc to close",
	}
	return strings.Join(sections, "\n")
}

func (m model) taskFilter() core.TaskFilter {
	var filter core.TaskFilter
	if m.activeTab == tabMine {
		filter.User = m.backend.Actor()
	}
	if !m.showFinished {
		filter.Status = task.StatusPending
	}
	return filter
}

func (m model) loadTasksCmd() tea.Cmd {
	ctx, backend, filter := m.ctx, m.backend, m.taskFilter()
	return func() tea.Msg {
		tasks, err := backend.ListTasks(ctx, filter)
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

func (m model) loadStatsCmd() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		stats, err := backend.Stats(ctx)
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func (m model) finishCmd(name string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		t, err := backend.FinishTask(ctx, name)
		return taskChangedMsg{task: t, message: fmt.Sprintf("Finished %q", name), err: err}
	}
}

func (m model) reactivateCmd(name string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		t, err := backend.ReactivateTask(ctx, name)
		return taskChangedMsg{task: t, message: fmt.Sprintf("Reactivated %q", name), err: err}
	}
}

func (m model) commentCmd(name, text string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		t, err := backend.AddComment(ctx, name, text)
		return taskChangedMsg{task: t, message: fmt.Sprintf("Commented on %q", name), err: err}
	}
}
