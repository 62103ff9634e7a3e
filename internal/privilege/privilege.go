// Package privilege gates the pipeline's access to superuser rights.
//
// The rule is narrow: every user-space step (cloning, configuring,
// compiling) runs unprivileged, and only package installation escalates,
// explicitly, through sudo. Running the whole tool as root is refused
// outright.
package privilege

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"

	"github.com/teleprint-me/agent/internal/errkind"
	"github.com/teleprint-me/agent/internal/log"
	"github.com/teleprint-me/agent/internal/run"
)

// Disclaimer is shown before the pipeline mutates anything. It states
// exactly what will happen; drivers are never touched.
const Disclaimer = `This will:
  - install build packages with your system package manager (via sudo)
  - clone or update the llama.cpp source tree
  - compile native code, which can take a while

GPU drivers are never installed. Continue? [y/N] `

// Guard checks the process identity, runs the confirmation gate, and
// acquires sudo for the run.
type Guard struct {
	runner     run.Runner
	geteuid    func() int
	lookPath   func(string) (string, error)
	stdin      io.Reader
	stdout     io.Writer
	isTerminal func() bool
	logger     log.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithRunner substitutes the command runner, for tests.
func WithRunner(r run.Runner) Option {
	return func(g *Guard) { g.runner = r }
}

// WithEUID substitutes the effective-uid probe, for tests.
func WithEUID(fn func() int) Option {
	return func(g *Guard) { g.geteuid = fn }
}

// WithLookPath substitutes the sudo executable probe, for tests.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(g *Guard) { g.lookPath = fn }
}

// WithPrompt substitutes the confirmation reader and writer, for tests.
func WithPrompt(in io.Reader, out io.Writer) Option {
	return func(g *Guard) {
		g.stdin = in
		g.stdout = out
		g.isTerminal = func() bool { return true }
	}
}

// WithLogger sets the guard's logger.
func WithLogger(l log.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// New creates a Guard bound to the real process identity and terminal.
func New(opts ...Option) *Guard {
	g := &Guard{
		runner:   run.Exec{},
		geteuid:  os.Geteuid,
		lookPath: exec.LookPath,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RefuseIfSuperuser fails when the effective identity is root.
func (g *Guard) RefuseIfSuperuser() error {
	if g.geteuid() == 0 {
		return errkind.New(errkind.KindRootExecution,
			"refusing to run as root; rerun as a regular user and sudo will be requested when needed")
	}
	return nil
}

// Confirm presents the disclaimer and reads a single answer. Anything
// other than the affirmative token aborts the pipeline. assumeYes skips
// the prompt for non-interactive use; without it, a non-terminal stdin
// counts as a decline rather than hanging on a read.
func (g *Guard) Confirm(assumeYes bool) error {
	if assumeYes {
		g.logger.Debug("confirmation skipped", "reason", "--yes")
		return nil
	}
	if !g.isTerminal() {
		return errkind.New(errkind.KindUserAborted,
			"stdin is not a terminal; pass --yes to run non-interactively")
	}

	fmt.Fprint(g.stdout, Disclaimer)
	reader := bufio.NewReader(g.stdin)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return errkind.New(errkind.KindUserAborted, "no answer read")
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer != "y" {
		return errkind.New(errkind.KindUserAborted, "declined")
	}
	return nil
}

// Acquire verifies sudo exists and primes its credential cache with a
// no-op validation, so any password prompt happens up front instead of
// mid-pipeline. The cache is short-lived; a later privileged command
// can still fail and is classified the same way, not as a build error.
func (g *Guard) Acquire(ctx context.Context) error {
	if _, err := g.lookPath("sudo"); err != nil {
		return errkind.Wrap(errkind.KindPrivilegeUnavailable, err,
			"sudo not found on PATH")
	}

	g.logger.Info("validating sudo credentials")
	cmd := run.Command{Name: "sudo", Args: []string{"-v"}}
	if err := g.runner.Stream(ctx, cmd, g.stdout, os.Stderr); err != nil {
		return errkind.Wrap(errkind.KindPrivilegeUnavailable, err,
			"sudo authentication failed")
	}
	return nil
}
