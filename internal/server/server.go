// Package server manages a llama-server process built by the bootstrap
// pipeline.
//
// It spawns the binary detached in its own session, records the pid,
// and waits for the HTTP health endpoint before reporting success, so
// "serve returned" means "the server answers".
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/teleprint-me/agent/internal/errkind"
	"github.com/teleprint-me/agent/internal/log"
)

// DefaultHealthTimeout bounds how long Start waits for the server to
// answer /health. Model loading dominates startup time.
const DefaultHealthTimeout = 60 * time.Second

// Find locates the llama-server binary: the install prefix first, then
// PATH. The prefix wins so a freshly built server beats a stale system
// copy.
func Find(prefix string, lookPath func(string) (string, error)) (string, error) {
	candidate := filepath.Join(prefix, "bin", "llama-server")
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}
	path, err := lookPath("llama-server")
	if err != nil {
		return "", errkind.New(errkind.KindServeFailed,
			"llama-server not found in %s/bin or on PATH; run `agent-setup up --install` first", prefix)
	}
	return path, nil
}

// Server starts and stops one llama-server instance.
type Server struct {
	Binary  string
	Host    string
	Port    int
	PidPath string

	healthTimeout time.Duration
	client        *http.Client
	logger        log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHealthTimeout overrides the startup health deadline, for tests.
func WithHealthTimeout(d time.Duration) Option {
	return func(s *Server) { s.healthTimeout = d }
}

// WithLogger sets the server's logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server manager.
func New(binary, host string, port int, pidPath string, opts ...Option) *Server {
	s := &Server{
		Binary:        binary,
		Host:          host,
		Port:          port,
		PidPath:       pidPath,
		healthTimeout: DefaultHealthTimeout,
		client:        &http.Client{Timeout: 2 * time.Second},
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) baseURL() string {
	return fmt.Sprintf("http://%s:%d", s.Host, s.Port)
}

// Start spawns llama-server detached and waits for it to become
// healthy. If a recorded instance is still alive this is a no-op.
// extraArgs are appended after the host and port flags.
func (s *Server) Start(ctx context.Context, extraArgs []string) error {
	if pid, ok := s.runningPid(); ok {
		s.logger.Info("llama-server already running", "pid", pid)
		return nil
	}

	args := []string{"--host", s.Host, "--port", strconv.Itoa(s.Port)}
	args = append(args, extraArgs...)
	s.logger.Info("starting llama-server", "binary", s.Binary, "addr", s.baseURL())
	s.logger.Debug("running", "command", s.Binary+" "+strings.Join(args, " "))

	cmd := exec.Command(s.Binary, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	// Own session: the server must outlive this process and ignore
	// the terminal's signals.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return errkind.Wrap(errkind.KindServeFailed, err, "could not spawn %s", s.Binary)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		s.logger.Warn("process release failed", "error", err)
	}

	if err := s.writePid(pid); err != nil {
		return errkind.Wrap(errkind.KindServeFailed, err, "could not record pid")
	}

	if err := s.waitHealthy(ctx); err != nil {
		return err
	}
	s.logger.Info("llama-server healthy", "pid", pid, "addr", s.baseURL())
	return nil
}

// Stop terminates the recorded instance. A missing pid file or an
// already-gone process is a no-op with a warning, not an error.
func (s *Server) Stop() error {
	data, err := os.ReadFile(s.PidPath)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("no recorded llama-server instance")
		return nil
	}
	if err != nil {
		return errkind.Wrap(errkind.KindServeFailed, err, "cannot read pid file")
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		os.Remove(s.PidPath)
		return errkind.Wrap(errkind.KindServeFailed, err, "malformed pid file %s", s.PidPath)
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		s.logger.Warn("llama-server already gone", "pid", pid)
	} else {
		s.logger.Info("stopped llama-server", "pid", pid)
	}
	return os.Remove(s.PidPath)
}

// runningPid reports the recorded pid if that process is still alive.
func (s *Server) runningPid() (int, bool) {
	data, err := os.ReadFile(s.PidPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	// Signal 0 probes liveness without delivering anything.
	if err := unix.Kill(pid, 0); err != nil {
		return 0, false
	}
	return pid, true
}

func (s *Server) writePid(pid int) error {
	if err := os.MkdirAll(filepath.Dir(s.PidPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.PidPath, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// waitHealthy polls GET /health until it answers 200 or the deadline
// passes.
func (s *Server) waitHealthy(ctx context.Context) error {
	deadline := time.Now().Add(s.healthTimeout)
	url := s.baseURL() + "/health"

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errkind.Wrap(errkind.KindServeFailed, err, "bad health URL")
		}
		resp, err := s.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		if ctx.Err() != nil {
			return errkind.Wrap(errkind.KindServeFailed, ctx.Err(), "health wait canceled")
		}
		if time.Now().After(deadline) {
			return errkind.New(errkind.KindServeFailed,
				"llama-server did not answer %s within %s", url, s.healthTimeout)
		}
		time.Sleep(250 * time.Millisecond)
	}
}
