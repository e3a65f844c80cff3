package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/editor"
	"github.com/amonks/tareas/internal/listflags"
	"github.com/amonks/tareas/internal/ui"
	"github.com/amonks/tareas/task"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

// task create
var taskCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a task",
	Long: `Create a task.

Opens $EDITOR with a TOML header and the description as the body when
--edit is given, or when running interactively without a name or
description. Use --description - to read the description from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTaskCreate,
}

// task list
var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Args:  cobra.NoArgs,
	RunE:  runTaskList,
}

// task mine
var taskMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List tasks assigned to you",
	Args:  cobra.NoArgs,
	RunE:  runTaskMine,
}

// task show
var taskShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a task with its comments",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

// task assign
var taskAssignCmd = &cobra.Command{
	Use:   "assign <task> <user>...",
	Short: "Assign users to a task (admins only)",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskAssign,
}

// task unassign
var taskUnassignCmd = &cobra.Command{
	Use:   "unassign <task> <user>...",
	Short: "Remove users from a task (admins only)",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTaskUnassign,
}

// task comment
var taskCommentCmd = &cobra.Command{
	Use:   "comment <task> <text>...",
	Short: "Comment on a task",
	Long: `Comment on a task. The remaining arguments are joined with spaces;
use - to read the comment from stdin.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTaskComment,
}

// task finish
var taskFinishCmd = &cobra.Command{
	Use:     "finish <task>...",
	Short:   "Finish tasks and archive them",
	Aliases: []string{"done"},
	Args:    cobra.MinimumNArgs(1),
	RunE:    runTaskFinish,
}

// task reactivate
var taskReactivateCmd = &cobra.Command{
	Use:   "reactivate <task>...",
	Short: "Mark finished tasks pending again (admins only)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskReactivate,
}

// task delete
var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task>...",
	Short: "Delete finished tasks (admins only)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTaskDelete,
}

// task archive
var taskArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "List archived finished tasks",
	Args:  cobra.NoArgs,
	RunE:  runTaskArchive,
}

var (
	taskCreateDescription string
	taskCreateAssign      []string
	taskCreateEdit        bool
	taskCreateNoEdit      bool

	taskListStatus string
	taskListUser   string
	taskListAll    bool
	taskListJSON   bool

	taskMineAll  bool
	taskMineJSON bool

	taskShowJSON    bool
	taskArchiveJSON bool
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd, taskListCmd, taskMineCmd, taskShowCmd, taskAssignCmd, taskUnassignCmd,
		taskCommentCmd, taskFinishCmd, taskReactivateCmd, taskDeleteCmd, taskArchiveCmd)

	taskCreateCmd.Flags().StringVarP(&taskCreateDescription, "description", "d", "", "Description (use '-' to read from stdin)")
	taskCreateCmd.Flags().StringArrayVar(&taskCreateAssign, "assign", nil, "Assign a user (repeatable, admins only)")
	taskCreateCmd.Flags().BoolVarP(&taskCreateEdit, "edit", "e", false, "Open $EDITOR (default if interactive and no name or description)")
	taskCreateCmd.Flags().BoolVar(&taskCreateNoEdit, "no-edit", false, "Do not open $EDITOR")

	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "Filter by status (pending, finished)")
	taskListCmd.Flags().StringVarP(&taskListUser, "user", "u", "", "Only tasks assigned to this user")
	listflags.AddAllFlag(taskListCmd, &taskListAll)
	listflags.AddJSONFlag(taskListCmd, &taskListJSON)

	listflags.AddAllFlag(taskMineCmd, &taskMineAll)
	listflags.AddJSONFlag(taskMineCmd, &taskMineJSON)

	listflags.AddJSONFlag(taskShowCmd, &taskShowJSON)
	listflags.AddJSONFlag(taskArchiveCmd, &taskArchiveJSON)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	if taskCreateEdit && taskCreateNoEdit {
		return fmt.Errorf("cannot use both --edit and --no-edit")
	}

	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}

	data := editor.TaskData{Assign: taskCreateAssign}
	if len(args) > 0 {
		data.Name = args[0]
	}
	data.Description, err = resolveTextFromStdin(taskCreateDescription, os.Stdin)
	if err != nil {
		return err
	}

	useEditor := taskCreateEdit ||
		(!taskCreateNoEdit && editor.IsInteractive() && (data.Name == "" || !cmd.Flags().Changed("description")))
	if useEditor {
		parsed, err := editor.EditTask(data)
		if err != nil {
			return err
		}
		data = editor.TaskData{Name: parsed.Name, Assign: parsed.Assign, Description: parsed.Description}
	}
	if data.Name == "" {
		return fmt.Errorf("task name is required")
	}

	created, err := check(a.coord.CreateTask(actor, data.Name, data.Description))
	if err != nil {
		return err
	}
	fmt.Printf("Created task %s.\n", ui.Name(created.Name))
	for _, userName := range data.Assign {
		if _, err := check(a.coord.AssignTask(actor, created.Name, userName)); err != nil {
			return err
		}
		fmt.Printf("Assigned %s.\n", ui.Name(userName))
	}
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}

	filter := core.TaskFilter{User: taskListUser}
	if taskListStatus != "" {
		status, err := task.ParseStatus(taskListStatus)
		if err != nil {
			return err
		}
		filter.Status = status
	} else if !taskListAll {
		filter.Status = task.StatusPending
	}

	tasks, err := check(a.coord.ListTasks(actor, filter))
	if err != nil {
		return err
	}
	if taskListJSON {
		return encodeJSONToStdout(nonNil(tasks))
	}
	if len(tasks) == 0 {
		fmt.Println(taskEmptyListMessage(filter, taskListAll || taskListStatus != ""))
		return nil
	}
	fmt.Print(formatTaskTable(tasks))
	return nil
}

func runTaskMine(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	tasks, err := check(a.coord.TasksForUser(actor, actor, taskMineAll))
	if err != nil {
		return err
	}
	if taskMineJSON {
		return encodeJSONToStdout(nonNil(tasks))
	}
	if len(tasks) == 0 {
		if taskMineAll {
			fmt.Println("No tasks assigned to you.")
		} else {
			fmt.Println("No pending tasks assigned to you. Use --all to include finished tasks.")
		}
		return nil
	}
	fmt.Print(formatTaskTable(tasks))
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	t, err := check(a.coord.FindTask(actor, args[0]))
	if err != nil {
		return err
	}
	if taskShowJSON {
		return encodeJSONToStdout(t)
	}
	printTaskDetail(t)
	return nil
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	return eachUser(args, "Assigned", func(a *app, actor, taskName, userName string) core.Result[task.Task] {
		return a.coord.AssignTask(actor, taskName, userName)
	})
}

func runTaskUnassign(cmd *cobra.Command, args []string) error {
	return eachUser(args, "Unassigned", func(a *app, actor, taskName, userName string) core.Result[task.Task] {
		return a.coord.UnassignTask(actor, taskName, userName)
	})
}

// eachUser applies op to the task in args[0] for every user in args[1:].
func eachUser(args []string, verb string, op func(a *app, actor, taskName, userName string) core.Result[task.Task]) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	taskName := args[0]
	for _, userName := range args[1:] {
		if _, err := check(op(a, actor, taskName, userName)); err != nil {
			return err
		}
		fmt.Printf("%s %s on %s.\n", verb, ui.Name(userName), ui.Name(taskName))
	}
	return nil
}

func runTaskComment(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	text, err := resolveTextFromStdin(strings.Join(args[1:], " "), os.Stdin)
	if err != nil {
		return err
	}
	updated, err := check(a.coord.AddComment(actor, args[0], text))
	if err != nil {
		return err
	}
	fmt.Printf("Commented on %s (%d comments).\n", ui.Name(updated.Name), len(updated.Comments))
	return nil
}

func runTaskFinish(cmd *cobra.Command, args []string) error {
	return eachTask(args, func(a *app, actor, name string) core.Result[task.Task] {
		return a.coord.FinishTask(actor, name)
	})
}

func runTaskReactivate(cmd *cobra.Command, args []string) error {
	return eachTask(args, func(a *app, actor, name string) core.Result[task.Task] {
		return a.coord.ReactivateTask(actor, name)
	})
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	return eachTask(args, func(a *app, actor, name string) core.Result[task.Task] {
		return a.coord.DeleteTask(actor, name)
	})
}

// eachTask applies op to every named task, printing each result message.
func eachTask(names []string, op func(a *app, actor, name string) core.Result[task.Task]) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	for _, name := range names {
		result := op(a, actor, name)
		if _, err := check(result); err != nil {
			return err
		}
		fmt.Println(upperFirst(result.Message) + ".")
	}
	return nil
}

func runTaskArchive(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	records, err := check(a.coord.ArchivedTasks())
	if err != nil {
		return err
	}
	if taskArchiveJSON {
		return encodeJSONToStdout(nonNil(records))
	}
	if len(records) == 0 {
		fmt.Println("No archived tasks.")
		return nil
	}
	fmt.Print(formatArchiveTable(records))
	return nil
}

func resolveTextFromStdin(value string, reader io.Reader) (string, error) {
	if value != "-" {
		return value, nil
	}

	input, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read from stdin: %w", err)
	}

	return strings.TrimRight(string(input), "\r\n"), nil
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}

func upperFirst(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
