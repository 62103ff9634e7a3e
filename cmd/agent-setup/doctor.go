package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/teleprint-me/agent/internal/config"
	"github.com/teleprint-me/agent/internal/platform"
	"github.com/teleprint-me/agent/internal/run"
	"github.com/teleprint-me/agent/internal/source"
)

// minCMakeVersion is the oldest cmake llama.cpp's build accepts.
var minCMakeVersion = semver.MustParse("3.14.0")

var cmakeVersionRe = regexp.MustCompile(`cmake version (\d+\.\d+\.\d+)`)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the host can run the bootstrap",
	Long: `Report the resolved platform and whether the tools the bootstrap
relies on are present. Read-only: nothing is installed or modified.

Exits non-zero if any check fails, making it suitable as a gate:

  agent-setup doctor || exit 1`,
	Args: cobra.NoArgs,
	Run:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitWithCode(ExitGeneral)
	}

	fmt.Println("Checking bootstrap environment...")
	failed := false

	// Check 1: platform resolution
	host := platform.NewResolver().Resolve()
	fmt.Printf("  Package manager family: %s", host)
	if host.Supported() {
		fmt.Println(" ... ok")
	} else {
		fmt.Println(" ... FAIL")
		fmt.Fprintf(os.Stderr, "    No apt-get, dnf, or pacman on PATH\n")
		failed = true
	}

	// Check 2: sudo
	fmt.Print("  sudo")
	if _, err := exec.LookPath("sudo"); err == nil {
		fmt.Println(" ... ok")
	} else {
		fmt.Println(" ... FAIL")
		fmt.Fprintf(os.Stderr, "    sudo not found; package installation will fail\n")
		failed = true
	}

	// Check 3: cmake present and recent enough. git and compilers are
	// installed by the pipeline itself, but cmake older than the
	// engine's minimum produces a confusing configure failure.
	fmt.Print("  cmake")
	if checkCMake(cmd.Context()) {
		fmt.Println(" ... ok")
	} else {
		fmt.Printf(" ... missing or older than %s (agent-setup up will install it)\n", minCMakeVersion)
	}

	// Check 4: source checkout state
	fmt.Printf("  Source tree: %s", cfg.SourceDir)
	if _, err := os.Stat(cfg.SourceDir); err != nil {
		fmt.Println(" ... not cloned yet")
	} else if head, err := source.Head(cfg.SourceDir); err != nil {
		fmt.Println(" ... FAIL")
		fmt.Fprintf(os.Stderr, "    Exists but is not a usable git checkout: %v\n", err)
		failed = true
	} else {
		fmt.Printf(" ... ok (at %.12s)\n", head)
	}

	if failed {
		exitWithCode(ExitGeneral)
	}
	fmt.Println("All checks passed.")
}

// checkCMake reports whether a usable cmake is already on PATH.
func checkCMake(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	output, err := run.Exec{}.Output(ctx, run.Command{Name: "cmake", Args: []string{"--version"}})
	if err != nil {
		return false
	}
	return cmakeVersionOK(output)
}

// cmakeVersionOK parses `cmake --version` output and applies the
// minimum-version gate.
func cmakeVersionOK(output string) bool {
	match := cmakeVersionRe.FindStringSubmatch(output)
	if match == nil {
		return false
	}
	version, err := semver.NewVersion(match[1])
	if err != nil {
		return false
	}
	return !version.LessThan(minCMakeVersion)
}
