package ui

import (
	"os"

	"golang.org/x/term"
)

const (
	ansiBold   = "\x1b[1m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiReset  = "\x1b[0m"
)

// Status colors a task status for terminal output.
func Status(status string) string {
	switch status {
	case "finished":
		return colorize(ansiGreen, status)
	case "pending":
		return colorize(ansiYellow, status)
	default:
		return status
	}
}

// Name highlights a user or task name.
func Name(name string) string {
	return colorize(ansiBold+ansiCyan, name)
}

func colorize(code, value string) string {
	if value == "" || !ansiEnabled() {
		return value
	}
	return code + value + ansiReset
}

func ansiEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}
