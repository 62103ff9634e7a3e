package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teleprint-me/agent/internal/errkind"
)

func TestFindPrefersPrefix(t *testing.T) {
	prefix := t.TempDir()
	binDir := filepath.Join(prefix, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	built := filepath.Join(binDir, "llama-server")
	require.NoError(t, os.WriteFile(built, []byte("#!/bin/sh\n"), 0o755))

	path, err := Find(prefix, func(string) (string, error) {
		return "/usr/bin/llama-server", nil
	})
	require.NoError(t, err)
	require.Equal(t, built, path, "the freshly built binary must win over PATH")
}

func TestFindFallsBackToPath(t *testing.T) {
	path, err := Find(t.TempDir(), func(name string) (string, error) {
		require.Equal(t, "llama-server", name)
		return "/usr/local/bin/llama-server", nil
	})
	require.NoError(t, err)
	require.Equal(t, "/usr/local/bin/llama-server", path)
}

func TestFindMissing(t *testing.T) {
	_, err := Find(t.TempDir(), func(string) (string, error) {
		return "", errors.New("not found")
	})
	require.Error(t, err)
	require.True(t, errkind.Is(err, errkind.KindServeFailed),
		"error kind = %v, want serve-failed", errkind.KindOf(err))
}

func TestStopWithoutPidFileIsNoop(t *testing.T) {
	s := New("llama-server", "127.0.0.1", 8080, filepath.Join(t.TempDir(), "missing.pid"))
	require.NoError(t, s.Stop())
}

func TestStopMalformedPidFile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "llama-server.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("not-a-pid"), 0o644))

	s := New("llama-server", "127.0.0.1", 8080, pidPath)
	err := s.Stop()
	require.Error(t, err)

	_, statErr := os.Stat(pidPath)
	require.True(t, os.IsNotExist(statErr), "malformed pid file should be removed")
}

func TestRunningPid(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "llama-server.pid")
	s := New("llama-server", "127.0.0.1", 8080, pidPath)

	// No file: not running.
	_, ok := s.runningPid()
	require.False(t, ok)

	// Our own pid is alive by definition.
	require.NoError(t, s.writePid(os.Getpid()))
	pid, ok := s.runningPid()
	require.True(t, ok)
	require.Equal(t, os.Getpid(), pid)

	// A pid that cannot exist is not running.
	require.NoError(t, os.WriteFile(pidPath, []byte("99999999"), 0o644))
	_, ok = s.runningPid()
	require.False(t, ok)
}

// newHealthServer runs a stand-in health endpoint and returns the
// host/port it listens on.
func newHealthServer(t *testing.T, status int) (string, int) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)

	host, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestWaitHealthy(t *testing.T) {
	host, port := newHealthServer(t, http.StatusOK)
	s := New("llama-server", host, port, filepath.Join(t.TempDir(), "pid"),
		WithHealthTimeout(2*time.Second))

	require.NoError(t, s.waitHealthy(context.Background()))
}

func TestWaitHealthyTimesOut(t *testing.T) {
	// Listener that accepts but never answers 200.
	host, port := newHealthServer(t, http.StatusServiceUnavailable)
	s := New("llama-server", host, port, filepath.Join(t.TempDir(), "pid"),
		WithHealthTimeout(500*time.Millisecond))

	err := s.waitHealthy(context.Background())
	require.Error(t, err)
	require.True(t, errkind.Is(err, errkind.KindServeFailed),
		"error kind = %v, want serve-failed", errkind.KindOf(err))
}

func TestStartIsIdempotentWhenAlive(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "llama-server.pid")
	s := New("/nonexistent/llama-server", "127.0.0.1", 1, pidPath)
	require.NoError(t, s.writePid(os.Getpid()))

	// The binary does not exist, so reaching the spawn path would
	// fail; the recorded live pid must short-circuit first.
	require.NoError(t, s.Start(context.Background(), nil))
}

func TestStartSpawnFailure(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing-binary"), "127.0.0.1", 1,
		filepath.Join(t.TempDir(), "pid"),
		WithHealthTimeout(time.Second))

	err := s.Start(context.Background(), nil)
	require.Error(t, err)
	require.True(t, errkind.Is(err, errkind.KindServeFailed),
		"error kind = %v, want serve-failed", errkind.KindOf(err))
}
