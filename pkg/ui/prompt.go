// Package ui asks the operator questions on the terminal.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Terminal reads answers from in and writes prompts to out. A Terminal is
// safe for concurrent use; questions are asked one at a time.
type Terminal struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer
	fd     int // -1 when in is not a terminal
}

// NewTerminal creates a Terminal over in and out. Sensitive input is read
// without echo when in is a terminal.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Terminal{
		reader: bufio.NewReader(in),
		out:    out,
		fd:     fd,
	}
}

// Prompt asks the user for a text input. An empty answer yields defaultValue.
func (t *Terminal) Prompt(label, defaultValue string, sensitive bool) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "%s ", label)
	if defaultValue != "" && !sensitive {
		fmt.Fprintf(t.out, "(default: %s) ", defaultValue)
	}

	var input string
	var err error

	if sensitive && t.fd >= 0 {
		var b []byte
		b, err = term.ReadPassword(t.fd)
		fmt.Fprintln(t.out) // Move to next line after password entry
		input = string(b)
	} else {
		input, err = t.readLine()
	}

	if err != nil {
		return "", err
	}

	input = strings.TrimSpace(input)
	if input == "" {
		input = defaultValue
	}

	return input, nil
}

// Confirm asks the user for a yes/no confirmation.
func (t *Terminal) Confirm(label string, defaultValue bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	suffix := "[y/N]"
	if defaultValue {
		suffix = "[Y/n]"
	}

	fmt.Fprintf(t.out, "%s %s ", label, suffix)

	input, err := t.readLine()
	if err != nil {
		return false, err
	}

	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return defaultValue, nil
	}

	return strings.HasPrefix(input, "y"), nil
}

// readLine reads one line. A final line without a newline is accepted.
func (t *Terminal) readLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err == io.EOF && line != "" {
		return line, nil
	}
	return line, err
}
