package core

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Stats summarizes users and tasks.
type Stats struct {
	Users UserStats `json:"users"`
	Tasks TaskStats `json:"tasks"`
}

// UserStats counts users by role and password state.
type UserStats struct {
	Total           int `json:"total"`
	Admins          int `json:"admins"`
	Standard        int `json:"standard"`
	WithoutPassword int `json:"without_password"`
}

// TaskStats counts tasks by status and assignment.
type TaskStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Finished   int `json:"finished"`
	Unassigned int `json:"unassigned"`
}

// Stats scans both mappings and returns the current counts.
func (c *Coordinator) Stats() Stats {
	var stats Stats
	c.view(func() {
		for _, u := range c.users {
			stats.Users.Total++
			if u.IsAdmin() {
				stats.Users.Admins++
			} else {
				stats.Users.Standard++
			}
			if !u.HasPassword() {
				stats.Users.WithoutPassword++
			}
		}
		for _, t := range c.tasks {
			stats.Tasks.Total++
			if t.IsFinished() {
				stats.Tasks.Finished++
			} else {
				stats.Tasks.Pending++
			}
			if len(t.AssignedUsers) == 0 {
				stats.Tasks.Unassigned++
			}
		}
	})
	return stats
}

// sortNames orders names with Unicode collation.
func sortNames(names []string) {
	collate.New(language.Und).SortStrings(names)
}
