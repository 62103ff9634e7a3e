package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teleprint-me/agent/internal/build"
	"github.com/teleprint-me/agent/internal/config"
	"github.com/teleprint-me/agent/internal/log"
	"github.com/teleprint-me/agent/internal/pipeline"
	"github.com/teleprint-me/agent/internal/pkgmgr"
	"github.com/teleprint-me/agent/internal/platform"
	"github.com/teleprint-me/agent/internal/privilege"
	"github.com/teleprint-me/agent/internal/source"
)

var (
	upPrefix    string
	upSourceDir string
	upRemote    string
	upRef       string
	upJobs      int
	upYes       bool
	upInstall   bool
)

var upCmd = &cobra.Command{
	Use:   "up [backend]",
	Short: "Install build dependencies and compile llama.cpp",
	Long: `Run the full bootstrap: install the toolchain packages for your
distro, install backend packages when the backend needs them, clone or
fast-forward the llama.cpp source, and compile it.

The backend is cpu (default), vulkan, or cuda. Vulkan installs the
Vulkan development packages first; cuda only selects the build flag —
the CUDA toolkit and drivers are never installed by this tool.

Examples:
  agent-setup up
  agent-setup up vulkan
  agent-setup up cuda --prefix ~/.local --install`,
	Args: cobra.MaximumNArgs(1),
	Run:  runUp,
}

func init() {
	upCmd.Flags().StringVar(&upPrefix, "prefix", "", "Install prefix for artifacts (default ~/.local)")
	upCmd.Flags().StringVar(&upSourceDir, "source-dir", "", "Local source checkout path")
	upCmd.Flags().StringVar(&upRemote, "remote", "", "Source repository URL")
	upCmd.Flags().StringVar(&upRef, "ref", "", "Branch to track")
	upCmd.Flags().IntVarP(&upJobs, "jobs", "j", 0, "Compile parallelism (default: all processing units)")
	upCmd.Flags().BoolVarP(&upYes, "yes", "y", false, "Skip the confirmation prompt")
	upCmd.Flags().BoolVar(&upInstall, "install", false, "Install built artifacts into the prefix")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) {
	backendName := ""
	if len(args) == 1 {
		backendName = args[0]
	}
	backend, err := build.ParseBackend(backendName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitWithCode(ExitUsage)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitWithCode(ExitGeneral)
	}
	if upPrefix != "" {
		cfg.Prefix = upPrefix
	}
	if upSourceDir != "" {
		cfg.SourceDir = upSourceDir
	}
	if upRemote != "" {
		cfg.Remote = upRemote
	}
	if upRef != "" {
		cfg.Ref = upRef
	}

	// Interrupt cancels the in-flight stage; partial package installs
	// and the git checkout remain inspectable on disk.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.Default()
	p := &pipeline.Pipeline{
		Guard:     privilege.New(privilege.WithLogger(logger)),
		Resolver:  platform.NewResolver(platform.WithLogger(logger)),
		Installer: pkgmgr.New(pkgmgr.WithLogger(logger)),
		Source:    source.New(source.WithLogger(logger)),
		Builder:   build.New(build.WithLogger(logger)),
		Logger:    logger,
	}

	result := p.Run(ctx, pipeline.Options{
		Build: build.Config{
			Backend: backend,
			Prefix:  cfg.Prefix,
			Jobs:    upJobs,
		},
		Source: source.Handle{
			Remote: cfg.Remote,
			Ref:    cfg.Ref,
			Path:   cfg.SourceDir,
		},
		AssumeYes:        upYes,
		InstallArtifacts: upInstall,
	})

	switch result.Status {
	case pipeline.StatusAborted:
		fmt.Println("Aborted. Nothing was changed.")
		exitWithCode(ExitSuccess)
	case pipeline.StatusFailed:
		fmt.Fprintf(os.Stderr, "Error: %v\n", result.Err)
		fmt.Fprintf(os.Stderr, "Failure class: %s (last completed stage: %s)\n",
			result.Kind(), result.LastStage)
		exitWithCode(exitCodeFor(result.Kind()))
	default:
		fmt.Printf("Build complete (%s backend).\n", backend)
		if upInstall {
			fmt.Printf("Artifacts installed under %s\n", cfg.Prefix)
			fmt.Println("Start the server with: agent-setup serve")
		} else {
			fmt.Printf("Binaries are in %s\n", cfg.SourceDir+"/build/bin")
			fmt.Println("Rerun with --install to stage them into the prefix.")
		}
	}
}
