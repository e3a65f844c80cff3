package main

import (
	"fmt"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/listflags"
	"github.com/amonks/tareas/internal/password"
	"github.com/amonks/tareas/internal/ui"
	"github.com/amonks/tareas/user"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users (admins only)",
}

// user create
var userCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a user",
	Long: `Create a user.

New users have no password; they choose one with "tareas set-password".
With --generate-password a random password is set and printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runUserCreate,
}

// user delete
var userDeleteCmd = &cobra.Command{
	Use:   "delete <name>...",
	Short: "Delete standard users and unassign them from their tasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUserDelete,
}

// user list
var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

// user show
var userShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserShow,
}

// user reset-password
var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password <name>",
	Short: "Clear a standard user's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserResetPassword,
}

var (
	userCreateRole     user.Role
	userCreateGenerate bool
	userListRole       user.Role
	userListSearch     string
	userListJSON       bool
	userShowJSON       bool
)

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd, userDeleteCmd, userListCmd, userShowCmd, userResetPasswordCmd)

	userCreateCmd.Flags().VarP(newRoleValue(&userCreateRole, user.RoleStandard), "role", "r", roleUsage("Role"))
	userCreateCmd.Flags().BoolVar(&userCreateGenerate, "generate-password", false, "Set and print a random password")

	userListCmd.Flags().Var(newRoleValue(&userListRole, ""), "role", roleUsage("Only list users with this role"))
	userListCmd.Flags().StringVarP(&userListSearch, "search", "s", "", "Only list users whose name contains this text")
	listflags.AddJSONFlag(userListCmd, &userListJSON)

	listflags.AddJSONFlag(userShowCmd, &userShowJSON)
}

// UserOutput is the JSON form of a user.
type UserOutput struct {
	Name        string    `json:"name"`
	Role        user.Role `json:"role"`
	HasPassword bool      `json:"has_password"`
}

func userOutput(u user.User) UserOutput {
	return UserOutput{Name: u.Name, Role: u.Role, HasPassword: u.HasPassword()}
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}

	name := args[0]
	created, err := check(a.coord.CreateUser(actor, name, userCreateRole))
	if err != nil {
		return err
	}
	fmt.Printf("Created %s user %s.\n", created.Role, ui.Name(created.Name))

	if !userCreateGenerate {
		fmt.Printf("They can choose a password with \"tareas set-password %s\".\n", created.Name)
		return nil
	}
	generated, err := password.Generate(a.cfg.Password.GeneratedLength, false)
	if err != nil {
		return err
	}
	if _, err := check(a.coord.SetInitialPassword(created.Name, generated)); err != nil {
		return err
	}
	fmt.Printf("Password: %s\n", generated)
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	for _, name := range args {
		result := a.coord.DeleteUser(actor, name)
		if _, err := check(result); err != nil {
			return err
		}
		fmt.Printf("Deleted user %s.\n", ui.Name(name))
	}
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	users, err := check(a.coord.ListUsers(actor, core.UserFilter{Role: userListRole, Search: userListSearch}))
	if err != nil {
		return err
	}

	if userListJSON {
		items := make([]UserOutput, 0, len(users))
		for _, u := range users {
			items = append(items, userOutput(u))
		}
		return encodeJSONToStdout(items)
	}
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}
	fmt.Print(formatUserTable(users))
	return nil
}

func formatUserTable(users []user.User) string {
	table := ui.NewTable("NAME", "ROLE", "PASSWORD")
	for _, u := range users {
		passwordState := "set"
		if !u.HasPassword() {
			passwordState = "not set"
		}
		table.AddRow(ui.Name(u.Name), string(u.Role), passwordState)
	}
	return table.String()
}

func runUserShow(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	u, err := check(a.coord.FindUser(actor, args[0]))
	if err != nil {
		return err
	}
	if userShowJSON {
		return encodeJSONToStdout(userOutput(u))
	}

	tasks, err := check(a.coord.TasksForUser(actor, u.Name, false))
	if err != nil {
		return err
	}
	passwordState := "set"
	if !u.HasPassword() {
		passwordState = "not set"
	}
	fmt.Printf("Name:     %s\n", ui.Name(u.Name))
	fmt.Printf("Role:     %s\n", u.Role)
	fmt.Printf("Password: %s\n", passwordState)
	fmt.Printf("Pending:  %d tasks\n", len(tasks))
	return nil
}

func runUserResetPassword(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	result := a.coord.ResetPassword(actor, args[0])
	if _, err := check(result); err != nil {
		return err
	}
	fmt.Printf("Password reset for %s; they must run \"tareas set-password %s\".\n", ui.Name(args[0]), args[0])
	return nil
}
