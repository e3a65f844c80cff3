package main

import (
	"fmt"
	"log"
	"os"

	"github.com/amonks/tareas/api"
	"github.com/amonks/tareas/internal/auth"
	"github.com/amonks/tareas/internal/config"
	"github.com/amonks/tareas/internal/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API for the data directory",
	Long: `Serve the REST API for the data directory.

Tokens are signed with $TAREAS_JWT_SECRET, which must be at least 32 bytes
and may be set in a .env file next to tareas.toml.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse and update tasks interactively",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

var (
	serveAddr string
	tuiServer string
)

func init() {
	rootCmd.AddCommand(serveCmd, tuiCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config or "+config.DefaultAddr+")")
	tuiCmd.Flags().StringVar(&tuiServer, "server", "", "Use a tareas server at this URL instead of the data directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.New(os.Stderr, "tareas: ", log.LstdFlags)
	hub := api.NewHub(logger)

	a, err := loadApp(hub.Broadcast)
	if err != nil {
		return err
	}
	if a.cfg.Auth.Secret == "" {
		return fmt.Errorf("%s is not set", config.EnvJWTSecret)
	}
	issuer, err := auth.NewIssuer(auth.Options{
		Secret:     a.cfg.Auth.Secret,
		AccessTTL:  a.cfg.Auth.AccessTTL,
		RefreshTTL: a.cfg.Auth.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", config.EnvJWTSecret, err)
	}

	server, err := api.NewServer(api.ServerOptions{
		Coordinator: a.coord,
		Issuer:      issuer,
		Hub:         hub,
		LoginLimit:  a.cfg.Server.LoginLimit,
		LoginWindow: a.cfg.Server.LoginWindow,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer server.Close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	logger.Printf("serving %s on %s", a.coord.Dir(), addr)
	return server.Serve(addr)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if tuiServer != "" {
		client, session, err := remoteClient(ctx, tuiServer)
		if err != nil {
			return err
		}
		return tui.Run(ctx, tui.RemoteBackend{Client: client, User: session.User})
	}

	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	return tui.Run(ctx, tui.LocalBackend{Coordinator: a.coord, User: actor})
}
