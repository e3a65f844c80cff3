// Package editor opens task templates in the user's editor.
package editor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// ErrNoEditor is returned when the editor command is blank.
var ErrNoEditor = errors.New("no editor configured")

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Command returns the editor command line: $VISUAL, then $EDITOR, then vi.
// Values may carry arguments, as in "code --wait".
func Command() []string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(key)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}

// Edit runs the editor on path attached to the terminal and waits for it.
func Edit(path string) error {
	command := Command()
	if len(command) == 0 {
		return ErrNoEditor
	}

	cmd := exec.Command(command[0], append(command[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &exitErr):
		return fmt.Errorf("%s exited with status %d; task not saved", command[0], exitErr.ExitCode())
	default:
		return fmt.Errorf("run %s: %w", command[0], err)
	}
}
