package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/teleprint-me/agent/internal/config"
	"github.com/teleprint-me/agent/internal/errkind"
	"github.com/teleprint-me/agent/internal/log"
	"github.com/teleprint-me/agent/internal/server"
)

var serveStop bool

var serveCmd = &cobra.Command{
	Use:   "serve [-- llama-server args]",
	Short: "Start or stop the built llama-server",
	Long: `Start llama-server in the background and wait until its health
endpoint answers. The binary is taken from the install prefix if the
build was installed there, otherwise from PATH. Arguments after --
are passed through, e.g.:

  agent-setup serve -- --model ~/models/model.gguf

Stop a previously started server with:

  agent-setup serve --stop`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveStop, "stop", false, "Stop the running server")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitWithCode(ExitGeneral)
	}

	logger := log.Default()

	if serveStop {
		s := server.New("", cfg.ServerHost, cfg.ServerPort, config.PidFile(),
			server.WithLogger(logger))
		if err := s.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitWithCode(exitCodeFor(errkind.KindOf(err)))
		}
		return
	}

	binary, err := server.Find(cfg.Prefix, exec.LookPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitWithCode(exitCodeFor(errkind.KindOf(err)))
	}

	s := server.New(binary, cfg.ServerHost, cfg.ServerPort, config.PidFile(),
		server.WithLogger(logger))
	if err := s.Start(cmd.Context(), args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitWithCode(exitCodeFor(errkind.KindOf(err)))
	}
	fmt.Printf("llama-server listening on http://%s:%d\n", cfg.ServerHost, cfg.ServerPort)
}
