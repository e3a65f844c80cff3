package main

import (
	"fmt"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/validation"
	"github.com/amonks/tareas/report"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy users and tasks into a SQL database (admins only)",
	Long: `Copy users and tasks into a SQL database for reporting.

Tables are created when missing and their rows replaced on every export.
Examples:

  tareas export --driver sqlite3 --dsn report.db
  tareas export --driver postgres --dsn "postgres://localhost/tareas?sslmode=disable"
  tareas export --driver mysql --dsn "user:pass@/tareas"`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportDriver string
	exportDSN    string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportDriver, "driver", string(report.SQLite),
		"Database driver ("+validation.FormatValidValues(report.ValidDialects())+")")
	exportCmd.Flags().StringVar(&exportDSN, "dsn", "", "Data source name")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	actor, err := a.actor()
	if err != nil {
		return err
	}
	users, err := check(a.coord.ListUsers(actor, core.UserFilter{}))
	if err != nil {
		return err
	}
	tasks, err := check(a.coord.ListTasks(actor, core.TaskFilter{}))
	if err != nil {
		return err
	}

	db, dialect, err := report.Open(exportDriver, exportDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	summary, err := report.Export(cmd.Context(), db, dialect, report.Snapshot{Users: users, Tasks: tasks})
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d users, %d tasks, %d assignments and %d comments to %s.\n",
		summary.Users, summary.Tasks, summary.Assignments, summary.Comments, dialect)
	return nil
}
