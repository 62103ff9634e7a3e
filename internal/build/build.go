// Package build drives the engine's cmake configure, compile, and
// install stages.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/teleprint-me/agent/internal/errkind"
	"github.com/teleprint-me/agent/internal/log"
	"github.com/teleprint-me/agent/internal/run"
)

// Backend selects the compute backend the engine is compiled for.
type Backend int

const (
	// BackendCPU is the default and needs no extra configure flag.
	BackendCPU Backend = iota

	// BackendVulkan enables the Vulkan backend.
	BackendVulkan

	// BackendCUDA enables the CUDA backend. The toolkit itself is not
	// installed by this tool.
	BackendCUDA
)

func (b Backend) String() string {
	switch b {
	case BackendCPU:
		return "cpu"
	case BackendVulkan:
		return "vulkan"
	case BackendCUDA:
		return "cuda"
	default:
		return "invalid"
	}
}

// ParseBackend maps a user-supplied backend name. An unknown name is a
// configuration error, never a silent fall-back to CPU.
func ParseBackend(name string) (Backend, error) {
	switch name {
	case "", "cpu":
		return BackendCPU, nil
	case "vulkan":
		return BackendVulkan, nil
	case "cuda":
		return BackendCUDA, nil
	default:
		return 0, fmt.Errorf("unknown backend %q (expected cpu, vulkan, or cuda)", name)
	}
}

// NeedsVulkanPackages reports whether the backend requires the Vulkan
// development packages before configuring.
func (b Backend) NeedsVulkanPackages() bool {
	return b == BackendVulkan
}

// baseFlags are fixed for every build: release mode, shared libraries
// so the server links the ggml backends it finds, and no engine tests
// or examples.
var baseFlags = []string{
	"-DCMAKE_BUILD_TYPE=Release",
	"-DBUILD_SHARED_LIBS=ON",
	"-DLLAMA_BUILD_TESTS=OFF",
	"-DLLAMA_BUILD_EXAMPLES=OFF",
}

// backendFlags maps each backend to its single enable flag. CPU builds
// add nothing; the flags are mutually exclusive and never combined.
var backendFlags = map[Backend]string{
	BackendVulkan: "-DGGML_VULKAN=ON",
	BackendCUDA:   "-DGGML_CUDA=ON",
}

// Config holds everything the build stages need, assembled once from
// user arguments.
type Config struct {
	Backend Backend
	Prefix  string // install prefix for the optional install stage
	Jobs    int    // compile parallelism; 0 means all processing units
}

// ConfigureArgs assembles the full cmake configure invocation for a
// source and build directory pair.
func (c Config) ConfigureArgs(sourceDir, buildDir string) []string {
	args := []string{"-S", sourceDir, "-B", buildDir}
	args = append(args, baseFlags...)
	if flag, ok := backendFlags[c.Backend]; ok {
		args = append(args, flag)
	}
	return args
}

func (c Config) jobs() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return runtime.NumCPU()
}

// Stage tracks how far a build has progressed. Transitions only move
// forward and only when the previous stage succeeded; on failure the
// orchestrator reports the last stage reached so a rerun can resume
// there instead of repeating earlier work.
type Stage int

const (
	StageUnconfigured Stage = iota
	StageConfigured
	StageCompiled
	StageInstalled
)

func (s Stage) String() string {
	switch s {
	case StageUnconfigured:
		return "unconfigured"
	case StageConfigured:
		return "configured"
	case StageCompiled:
		return "compiled"
	case StageInstalled:
		return "installed"
	default:
		return "invalid"
	}
}

// Orchestrator runs the build stages for one source tree.
type Orchestrator struct {
	runner run.Runner
	stdout io.Writer
	stderr io.Writer
	logger log.Logger
	stage  Stage
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunner substitutes the command runner, for tests.
func WithRunner(r run.Runner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// WithOutput redirects the streamed build output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *Orchestrator) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(l log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator in the unconfigured stage.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner: run.Exec{},
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Stage returns the last stage that completed successfully.
func (o *Orchestrator) Stage() Stage {
	return o.stage
}

// Configure runs the cmake configure step and returns the build
// directory. Output is captured and surfaced verbatim on failure.
func (o *Orchestrator) Configure(ctx context.Context, cfg Config, sourceDir string) (string, error) {
	if o.stage != StageUnconfigured {
		return "", fmt.Errorf("configure called in stage %s", o.stage)
	}

	cmakeLists := filepath.Join(sourceDir, "CMakeLists.txt")
	if _, err := os.Stat(cmakeLists); err != nil {
		return "", errkind.Wrap(errkind.KindConfigureFailed, err,
			"CMakeLists.txt not found in %s", sourceDir)
	}

	buildDir := filepath.Join(sourceDir, "build")
	cmd := run.Command{Name: "cmake", Args: cfg.ConfigureArgs(sourceDir, buildDir)}
	o.logger.Info("configuring", "backend", cfg.Backend.String(), "build_dir", buildDir)
	o.logger.Debug("running", "command", cmd.String())

	output, err := o.runner.Output(ctx, cmd)
	if err != nil {
		return "", errkind.Wrap(errkind.KindConfigureFailed, err,
			"cmake configure failed:\n%s", output)
	}

	o.stage = StageConfigured
	return buildDir, nil
}

// Compile runs the cmake build step, streaming compiler output so a
// long build stays observable and interruptible.
func (o *Orchestrator) Compile(ctx context.Context, cfg Config, buildDir string) error {
	if o.stage != StageConfigured {
		return fmt.Errorf("compile called in stage %s", o.stage)
	}

	cmd := run.Command{
		Name: "cmake",
		Args: []string{"--build", buildDir, "--parallel", strconv.Itoa(cfg.jobs())},
	}
	o.logger.Info("compiling", "jobs", cfg.jobs(), "build_dir", buildDir)
	o.logger.Debug("running", "command", cmd.String())

	if err := o.runner.Stream(ctx, cmd, o.stdout, o.stderr); err != nil {
		return errkind.Wrap(errkind.KindCompileFailed, err, "cmake build failed")
	}

	o.stage = StageCompiled
	return nil
}

// Install stages the built artifacts into the prefix. The --prefix
// override pins the destination regardless of what prefix the build
// tree was configured with, so artifacts never land outside cfg.Prefix.
func (o *Orchestrator) Install(ctx context.Context, cfg Config, buildDir string) error {
	if o.stage != StageCompiled {
		return fmt.Errorf("install called in stage %s", o.stage)
	}

	cmd := run.Command{
		Name: "cmake",
		Args: []string{"--install", buildDir, "--prefix", cfg.Prefix},
	}
	o.logger.Info("installing artifacts", "prefix", cfg.Prefix)
	o.logger.Debug("running", "command", cmd.String())

	if err := o.runner.Stream(ctx, cmd, o.stdout, o.stderr); err != nil {
		return errkind.Wrap(errkind.KindInstallFailed, err,
			"cmake install into %s failed", cfg.Prefix)
	}

	o.stage = StageInstalled
	return nil
}
