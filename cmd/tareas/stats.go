package main

import (
	"fmt"
	"strconv"

	"github.com/amonks/tareas/core"
	"github.com/amonks/tareas/internal/listflags"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show user and task counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsJSON bool

var (
	statsPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1)
	statsTitleStyle = lipgloss.NewStyle().Bold(true)
)

func init() {
	rootCmd.AddCommand(statsCmd)
	listflags.AddJSONFlag(statsCmd, &statsJSON)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	stats := a.coord.Stats()
	if statsJSON {
		return encodeJSONToStdout(stats)
	}
	fmt.Println(formatStats(stats))
	return nil
}

func formatStats(stats core.Stats) string {
	users := statsPanel("Users", [][2]string{
		{"Total", strconv.Itoa(stats.Users.Total)},
		{"Admins", strconv.Itoa(stats.Users.Admins)},
		{"Standard", strconv.Itoa(stats.Users.Standard)},
		{"Without password", strconv.Itoa(stats.Users.WithoutPassword)},
	})
	tasks := statsPanel("Tasks", [][2]string{
		{"Total", strconv.Itoa(stats.Tasks.Total)},
		{"Pending", strconv.Itoa(stats.Tasks.Pending)},
		{"Finished", strconv.Itoa(stats.Tasks.Finished)},
		{"Unassigned", strconv.Itoa(stats.Tasks.Unassigned)},
	})
	return lipgloss.JoinHorizontal(lipgloss.Top, users, " ", tasks)
}

func statsPanel(title string, rows [][2]string) string {
	labelWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row[0]))
	}
	lines := []string{statsTitleStyle.Render(title)}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf("%-*s  %s", labelWidth, row[0], row[1]))
	}
	return statsPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
