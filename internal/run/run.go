// Package run wraps external command execution behind a small interface
// so components that shell out (package installs, sudo probes, cmake)
// stay testable without touching the host.
package run

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
)

// Command describes a single external invocation.
type Command struct {
	Name string
	Args []string
	Dir  string // working directory; empty means inherit
}

// String renders the command the way it would be typed in a shell,
// for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes external commands.
type Runner interface {
	// Stream runs cmd with its output attached to the given writers.
	// Long-running commands (compiles, package installs) use this so
	// the user can watch progress and interrupt a stall.
	Stream(ctx context.Context, cmd Command, stdout, stderr io.Writer) error

	// Output runs cmd and returns its combined stdout+stderr. Used for
	// short commands whose output only matters on failure, where it is
	// surfaced verbatim in the error.
	Output(ctx context.Context, cmd Command) (string, error)
}

// Exec is the real Runner backed by os/exec.
type Exec struct{}

func (Exec) Stream(ctx context.Context, cmd Command, stdout, stderr io.Writer) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = stdout
	c.Stderr = stderr
	return c.Run()
}

func (Exec) Output(ctx context.Context, cmd Command) (string, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf
	err := c.Run()
	return buf.String(), err
}
