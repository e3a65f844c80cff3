package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrPasswordMismatch is returned when a password confirmation differs.
var ErrPasswordMismatch = errors.New("passwords do not match")

var stdinLines *bufio.Reader

// readPassword prompts on stderr and reads a password without echo when
// stdin is a terminal, or the next line of stdin otherwise.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		value, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(value), nil
	}
	return readLine(os.Stdin)
}

// readNewPassword reads a password and its confirmation.
func readNewPassword(prompt string) (string, error) {
	first, err := readPassword(prompt)
	if err != nil {
		return "", err
	}
	second, err := readPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", ErrPasswordMismatch
	}
	return first, nil
}

func readLine(reader io.Reader) (string, error) {
	if stdinLines == nil {
		stdinLines = bufio.NewReader(reader)
	}
	line, err := stdinLines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: unexpected end of input")
		}
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
