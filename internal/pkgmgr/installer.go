// Package pkgmgr drives the host package manager under sudo.
package pkgmgr

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/teleprint-me/agent/internal/errkind"
	"github.com/teleprint-me/agent/internal/log"
	"github.com/teleprint-me/agent/internal/platform"
	"github.com/teleprint-me/agent/internal/run"
)

// InstallCommand translates an abstract install intent into the
// platform's concrete invocation. apt and dnf share the
// install-subcommand form; pacman uses -S. Every variant is
// non-interactive: the confirmation gate already ran, and a package
// manager waiting on a hidden prompt would look like a hang.
func InstallCommand(p platform.Platform, packages []string) (run.Command, error) {
	var args []string
	switch p.Family {
	case platform.FamilyDebian:
		args = []string{"apt-get", "install", "-y"}
	case platform.FamilyFedora:
		args = []string{"dnf", "install", "-y"}
	case platform.FamilyArch:
		args = []string{"pacman", "-S", "--noconfirm", "--needed"}
	default:
		return run.Command{}, errkind.New(errkind.KindUnsupportedPlatform,
			"no package manager invocation for platform %s", p)
	}
	return run.Command{Name: "sudo", Args: append(args, packages...)}, nil
}

// Installer executes package installs and streams manager output so
// the user sees download and transaction progress live.
type Installer struct {
	runner run.Runner
	stdout io.Writer
	stderr io.Writer
	logger log.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithRunner substitutes the command runner, for tests.
func WithRunner(r run.Runner) Option {
	return func(i *Installer) { i.runner = r }
}

// WithOutput redirects the streamed manager output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(i *Installer) {
		i.stdout = stdout
		i.stderr = stderr
	}
}

// WithLogger sets the installer's logger.
func WithLogger(l log.Logger) Option {
	return func(i *Installer) { i.logger = l }
}

// New creates an Installer writing to the process's stdout and stderr.
func New(opts ...Option) *Installer {
	i := &Installer{
		runner: run.Exec{},
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install installs the packages with the platform's manager under sudo.
// Not transactional: on failure some packages may already be installed,
// which matches the underlying manager's semantics. The error names the
// attempted list so the user can retry by hand.
func (i *Installer) Install(ctx context.Context, p platform.Platform, packages []string) error {
	if len(packages) == 0 {
		return nil
	}

	cmd, err := InstallCommand(p, packages)
	if err != nil {
		return err
	}

	// Revalidate before every privileged command. The credential cache
	// is short-lived and may have expired during an earlier long
	// stage; an expired cache is a privilege problem, not a package
	// problem.
	probe := run.Command{Name: "sudo", Args: []string{"-v"}}
	if err := i.runner.Stream(ctx, probe, i.stdout, i.stderr); err != nil {
		return errkind.Wrap(errkind.KindPrivilegeUnavailable, err,
			"sudo revalidation failed")
	}

	i.logger.Info("installing packages", "platform", p.String(), "packages", strings.Join(packages, " "))
	i.logger.Debug("running", "command", cmd.String())

	if err := i.runner.Stream(ctx, cmd, i.stdout, i.stderr); err != nil {
		return errkind.Wrap(errkind.KindPackageInstallFailed, err,
			"failed to install: %s", strings.Join(packages, " "))
	}
	return nil
}
