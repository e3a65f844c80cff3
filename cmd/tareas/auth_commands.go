package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amonks/tareas/api"
	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/password"
	"github.com/amonks/tareas/internal/state"
	"github.com/amonks/tareas/internal/ui"
	"github.com/spf13/cobra"
)

// ErrAdminExists is returned by init-admin once an admin exists.
var ErrAdminExists = errors.New("an admin already exists")

// init-admin
var initAdminCmd = &cobra.Command{
	Use:   "init-admin <name>",
	Short: "Create the first admin and log in as them",
	Args:  cobra.ExactArgs(1),
	RunE:  runInitAdmin,
}

// login
var loginCmd = &cobra.Command{
	Use:   "login <name>",
	Short: "Log in to the data directory or a server",
	Long: `Log in to the data directory or, with --server, to a tareas server.

The password is read without echo from the terminal, or as one line from
stdin when stdin is not a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

// logout
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the logged-in user",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

// whoami
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

// passwd
var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change your password",
	Args:  cobra.NoArgs,
	RunE:  runPasswd,
}

// set-password
var setPasswordCmd = &cobra.Command{
	Use:   "set-password <name>",
	Short: "Set the first password of a user who has none",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetPassword,
}

// genpass
var genpassCmd = &cobra.Command{
	Use:   "genpass",
	Short: "Print a random password",
	Args:  cobra.NoArgs,
	RunE:  runGenpass,
}

var (
	serverFlag     string
	genpassLength  int
	genpassSymbols bool
)

func init() {
	rootCmd.AddCommand(initAdminCmd, loginCmd, logoutCmd, whoamiCmd, passwdCmd, setPasswordCmd, genpassCmd)

	loginCmd.Flags().StringVar(&serverFlag, "server", "", "Log in to a tareas server at this URL")
	logoutCmd.Flags().StringVar(&serverFlag, "server", "", "Log out of a tareas server at this URL")
	whoamiCmd.Flags().StringVar(&serverFlag, "server", "", "Ask a tareas server at this URL")

	genpassCmd.Flags().IntVarP(&genpassLength, "length", "n", 0, "Password length (default from config)")
	genpassCmd.Flags().BoolVar(&genpassSymbols, "symbols", false, "Include punctuation")
}

func runInitAdmin(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	if a.coord.HasAdmin() {
		return ErrAdminExists
	}

	name := args[0]
	plain, err := readNewPassword("Password: ")
	if err != nil {
		return err
	}
	admin, err := check(a.coord.BootstrapAdmin(name, plain))
	if err != nil {
		return err
	}
	if err := a.store.SetLocalSession(a.coord.Dir(), state.LocalSession{User: admin.Name, LoggedInAt: time.Now()}); err != nil {
		return err
	}
	fmt.Printf("Created admin %s and logged in.\n", ui.Name(admin.Name))
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	name := args[0]
	if serverFlag != "" {
		return runRemoteLogin(cmd.Context(), serverFlag, name)
	}

	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	plain, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	u, err := check(a.coord.Authenticate(name, plain))
	if errors.Is(err, core.ErrPasswordNotSet) {
		return fmt.Errorf("%w; run \"tareas set-password %s\" first", err, name)
	}
	if err != nil {
		return err
	}
	if err := a.store.SetLocalSession(a.coord.Dir(), state.LocalSession{User: u.Name, LoggedInAt: time.Now()}); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s).\n", ui.Name(u.Name), u.Role)
	return nil
}

func runRemoteLogin(ctx context.Context, server, name string) error {
	store, err := openStateStore()
	if err != nil {
		return err
	}
	plain, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	client := api.NewClient(server)
	session, err := client.Login(ctx, name, plain)
	if err != nil {
		return err
	}
	err = store.SetRemoteSession(server, state.RemoteSession{
		User:         session.User.Name,
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
		LoggedInAt:   time.Now(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Logged in to %s as %s (%s).\n", server, ui.Name(session.User.Name), session.User.Role)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if serverFlag != "" {
		client, _, err := remoteClient(cmd.Context(), serverFlag)
		if err != nil {
			return err
		}
		if err := client.Logout(cmd.Context()); err != nil {
			return err
		}
		store, err := openStateStore()
		if err != nil {
			return err
		}
		if _, err := store.ClearRemoteSession(serverFlag); err != nil {
			return err
		}
		fmt.Printf("Logged out of %s.\n", serverFlag)
		return nil
	}

	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	cleared, err := a.store.ClearLocalSession(a.coord.Dir())
	if err != nil {
		return err
	}
	if !cleared {
		fmt.Println("Not logged in.")
		return nil
	}
	fmt.Println("Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	if serverFlag != "" {
		client, _, err := remoteClient(cmd.Context(), serverFlag)
		if err != nil {
			return err
		}
		me, err := client.Me(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s)\n", ui.Name(me.Name), me.Role)
		return nil
	}

	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	u, err := check(a.coord.FindUser(actor, actor))
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", ui.Name(u.Name), u.Role)
	return nil
}

func runPasswd(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	current, err := readPassword("Current password: ")
	if err != nil {
		return err
	}
	next, err := readNewPassword("New password: ")
	if err != nil {
		return err
	}
	result := a.coord.ChangePassword(actor, current, next)
	if _, err := check(result); err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

func runSetPassword(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	plain, err := readNewPassword("New password: ")
	if err != nil {
		return err
	}
	result := a.coord.SetInitialPassword(args[0], plain)
	if _, err := check(result); err != nil {
		return err
	}
	fmt.Printf("%s; log in with \"tareas login %s\".\n", result.Message, args[0])
	return nil
}

func runGenpass(cmd *cobra.Command, args []string) error {
	length := genpassLength
	if length <= 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		length = cfg.Password.GeneratedLength
	}
	value, err := password.Generate(length, genpassSymbols)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}
