package ui

import (
	"fmt"
	"time"

	"github.com/amonks/tareas/task"
)

var ageUnits = []struct {
	size   time.Duration
	suffix string
}{
	{7 * 24 * time.Hour, "w"},
	{24 * time.Hour, "d"},
	{time.Hour, "h"},
	{time.Minute, "m"},
	{time.Second, "s"},
}

// FormatTimeAgo returns the age of then in its largest whole unit, such
// as "3h ago". A zero time renders as "-".
func FormatTimeAgo(then time.Time, now time.Time) string {
	if then.IsZero() {
		return "-"
	}
	return FormatAge(now.Sub(then)) + " ago"
}

// FormatAge renders a duration in its largest whole unit. Negative
// durations count as zero.
func FormatAge(age time.Duration) string {
	for _, unit := range ageUnits {
		if age >= unit.size {
			return fmt.Sprintf("%d%s", age/unit.size, unit.suffix)
		}
	}
	return "0s"
}

// FormatTimestamp renders t in the archive layout, or "-" when unset.
func FormatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(task.TimestampLayout)
}
