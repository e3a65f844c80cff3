// Package main implements the tareas CLI tool.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tareas",
	Short: "Tareas - shared task lists for small teams",
	Long: `Tareas manages users and tasks stored in a data directory.

Data lives in the current directory unless tareas.toml, TAREAS_DATA_DIR or
--data-dir say otherwise. Log in once per data directory with
"tareas login <name>"; later commands act as that user.`,
	SilenceUsage: true,
}

var dataDirFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Directory holding users, tasks and the archive")
}
