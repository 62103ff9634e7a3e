package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teleprint-me/agent/internal/log"
)

// Version is the current version of agent-setup.
var Version = "0.1.0"

var (
	flagVerbose bool
	flagQuiet   bool
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "agent-setup",
	Short: "Bootstrap and run the llama.cpp inference engine",
	Long: `agent-setup prepares a machine to run the agent's inference engine.

It installs the build dependencies with your distro's package manager
(apt, dnf, or pacman), clones or fast-forwards the llama.cpp source
tree, and compiles it for a selected backend (cpu, vulkan, or cuda).
The built llama-server can then be managed with the serve command.

All steps run as your own user; sudo is requested only for package
installation, after an explicit confirmation.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		switch {
		case flagDebug:
			level = slog.LevelDebug
		case flagVerbose:
			level = slog.LevelInfo
		case flagQuiet:
			level = slog.LevelError
		}
		log.SetDefault(log.NewText(os.Stderr, level))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Show operational detail")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Show errors only")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Show debugging detail")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitGeneral)
	}
}
