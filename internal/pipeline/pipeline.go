// Package pipeline composes the bootstrap stages into one ordered run.
//
// The sequence is strict because every stage depends on the side
// effects of the one before it: packages must exist before cmake can
// configure, the source tree before anything can build. Nothing is
// retried — a package-manager or privilege failure usually means the
// environment needs a human, and blind retry would only mask that.
package pipeline

import (
	"context"

	"github.com/teleprint-me/agent/internal/build"
	"github.com/teleprint-me/agent/internal/errkind"
	"github.com/teleprint-me/agent/internal/log"
	"github.com/teleprint-me/agent/internal/platform"
	"github.com/teleprint-me/agent/internal/source"
)

// Guard is the privilege component (see internal/privilege).
type Guard interface {
	RefuseIfSuperuser() error
	Confirm(assumeYes bool) error
	Acquire(ctx context.Context) error
}

// Resolver detects the host platform (see internal/platform).
type Resolver interface {
	Resolve() platform.Platform
}

// Installer installs system packages (see internal/pkgmgr).
type Installer interface {
	Install(ctx context.Context, p platform.Platform, packages []string) error
}

// Repository ensures the source checkout (see internal/source).
type Repository interface {
	Ensure(ctx context.Context, h source.Handle) error
}

// Builder runs the build stages (see internal/build).
type Builder interface {
	Configure(ctx context.Context, cfg build.Config, sourceDir string) (string, error)
	Compile(ctx context.Context, cfg build.Config, buildDir string) error
	Install(ctx context.Context, cfg build.Config, buildDir string) error
	Stage() build.Stage
}

// Options selects what a run does.
type Options struct {
	Build            build.Config
	Source           source.Handle
	AssumeYes        bool
	InstallArtifacts bool
}

// Status is the terminal outcome of a run.
type Status int

const (
	// StatusSuccess means every requested stage completed.
	StatusSuccess Status = iota

	// StatusAborted means the user declined the confirmation gate.
	// Not a fault; the process exits 0.
	StatusAborted

	// StatusFailed means a stage failed and the rest were skipped.
	StatusFailed
)

// Result is what a run produced. LastStage reports how far the build
// got so a failed run can be resumed by hand without redoing earlier
// stages.
type Result struct {
	Status    Status
	Err       error
	LastStage build.Stage
}

// Kind returns the failure classification, or KindUnknown for success.
func (r Result) Kind() errkind.Kind {
	return errkind.KindOf(r.Err)
}

// Pipeline wires the components together. Fields are interfaces so the
// end-to-end behavior is testable against fakes; cmd/agent-setup fills
// them with the real implementations.
type Pipeline struct {
	Guard     Guard
	Resolver  Resolver
	Installer Installer
	Source    Repository
	Builder   Builder
	Logger    log.Logger
}

// Run executes the bootstrap sequence. Any component failure
// short-circuits the rest and propagates its classification unchanged.
func (p *Pipeline) Run(ctx context.Context, opts Options) Result {
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}

	if err := p.Guard.RefuseIfSuperuser(); err != nil {
		return p.fail(err)
	}

	if err := p.Guard.Confirm(opts.AssumeYes); err != nil {
		if errkind.Is(err, errkind.KindUserAborted) {
			logger.Info("aborted by user")
			return Result{Status: StatusAborted, Err: err}
		}
		return p.fail(err)
	}

	if err := p.Guard.Acquire(ctx); err != nil {
		return p.fail(err)
	}

	host := p.Resolver.Resolve()
	logger.Info("platform resolved", "platform", host.String())

	toolchain, err := platform.PackagesFor(host, platform.ClassToolchain)
	if err != nil {
		return p.fail(err)
	}
	if err := p.Installer.Install(ctx, host, toolchain); err != nil {
		return p.fail(err)
	}

	if opts.Build.Backend.NeedsVulkanPackages() {
		vulkan, err := platform.PackagesFor(host, platform.ClassVulkan)
		if err != nil {
			return p.fail(err)
		}
		if err := p.Installer.Install(ctx, host, vulkan); err != nil {
			return p.fail(err)
		}
	}

	if err := p.Source.Ensure(ctx, opts.Source); err != nil {
		return p.fail(err)
	}

	buildDir, err := p.Builder.Configure(ctx, opts.Build, opts.Source.Path)
	if err != nil {
		return p.fail(err)
	}
	if err := p.Builder.Compile(ctx, opts.Build, buildDir); err != nil {
		return p.fail(err)
	}
	if opts.InstallArtifacts {
		if err := p.Builder.Install(ctx, opts.Build, buildDir); err != nil {
			return p.fail(err)
		}
	}

	logger.Info("bootstrap complete", "stage", p.Builder.Stage().String())
	return Result{Status: StatusSuccess, LastStage: p.Builder.Stage()}
}

func (p *Pipeline) fail(err error) Result {
	var stage build.Stage
	if p.Builder != nil {
		stage = p.Builder.Stage()
	}
	return Result{Status: StatusFailed, Err: err, LastStage: stage}
}
