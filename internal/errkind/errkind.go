// Package errkind defines the typed error taxonomy for the bootstrap
// pipeline.
//
// Every component returns an *Error carrying a Kind. The pipeline never
// recovers from these locally; they propagate unchanged to the command
// boundary, where cmd/agent-setup maps each Kind to a stable numeric exit
// code. Keeping the numeric mapping out of this package means callers
// branch on Kind with errors.As, not on magic integers.
package errkind

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is the zero value and never returned deliberately.
	KindUnknown Kind = iota

	// KindRootExecution means the process was started as the superuser.
	// The pipeline refuses to run: only package installation needs
	// privilege, and it requests that narrowly via sudo.
	KindRootExecution

	// KindUserAborted means the user declined the confirmation prompt.
	// This is not a fault; the process exits 0.
	KindUserAborted

	// KindPrivilegeUnavailable means no escalation mechanism was found
	// or authentication failed, at any point in the run.
	KindPrivilegeUnavailable

	// KindUnsupportedPlatform means no recognized package manager was
	// found and the OS-release identifier maps to nothing we support.
	KindUnsupportedPlatform

	// KindPackageInstallFailed means the package manager exited non-zero.
	KindPackageInstallFailed

	// KindCloneFailed means the initial clone of the source tree failed.
	KindCloneFailed

	// KindUpdateConflict means the local source tree diverged from
	// upstream, or has local modifications, and the update refused to
	// touch it.
	KindUpdateConflict

	// KindConfigureFailed means the cmake configure step exited non-zero.
	KindConfigureFailed

	// KindCompileFailed means the cmake build step exited non-zero.
	KindCompileFailed

	// KindInstallFailed means staging artifacts into the prefix failed.
	KindInstallFailed

	// KindServeFailed means llama-server could not be started or did not
	// become healthy in time.
	KindServeFailed
)

// String returns the short classification name printed alongside failures.
func (k Kind) String() string {
	switch k {
	case KindRootExecution:
		return "root-execution"
	case KindUserAborted:
		return "user-aborted"
	case KindPrivilegeUnavailable:
		return "privilege-unavailable"
	case KindUnsupportedPlatform:
		return "unsupported-platform"
	case KindPackageInstallFailed:
		return "package-install-failed"
	case KindCloneFailed:
		return "clone-failed"
	case KindUpdateConflict:
		return "update-conflict"
	case KindConfigureFailed:
		return "configure-failed"
	case KindCompileFailed:
		return "compile-failed"
	case KindInstallFailed:
		return "install-failed"
	case KindServeFailed:
		return "serve-failed"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure. It preserves the underlying
// cause (including any captured command output) via Unwrap.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. Returns nil if err is nil so
// callers can wrap unconditionally.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from an error chain. Unclassified errors
// report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether the error chain carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
