// Package listflags holds flags shared by listing commands.
package listflags

import "github.com/spf13/cobra"

// AddAllFlag adds a shared --all flag that includes finished tasks.
func AddAllFlag(cmd *cobra.Command, target *bool) {
	cmd.Flags().BoolVarP(target, "all", "a", false, "Include finished tasks")
}

// AddJSONFlag adds a shared --json flag for machine-readable output.
func AddJSONFlag(cmd *cobra.Command, target *bool) {
	cmd.Flags().BoolVar(target, "json", false, "Print JSON instead of a table")
}
