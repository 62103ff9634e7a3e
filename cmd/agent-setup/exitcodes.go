package main

import (
	"os"

	"github.com/teleprint-me/agent/internal/errkind"
)

// Exit codes for different failure classes. Powers of two, matching
// the bitmask convention of the shell tooling this replaces, so
// calling scripts can branch on the class without parsing output.
const (
	// ExitSuccess covers success and an explicit user abort.
	ExitSuccess = 0

	// ExitGeneral indicates an unclassified error.
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments, such as an unknown
	// backend name. Shares the general code; usage errors are caught
	// before any host state changes.
	ExitUsage = 1

	// ExitRootExecution indicates the tool was run as root.
	ExitRootExecution = 2

	// ExitPrivilege indicates sudo was missing or authentication failed.
	ExitPrivilege = 4

	// ExitUnsupportedPlatform indicates no recognized package manager.
	ExitUnsupportedPlatform = 8

	// ExitPackageInstall indicates the package manager failed.
	ExitPackageInstall = 16

	// ExitSource indicates the source tree could not be cloned or
	// fast-forwarded.
	ExitSource = 32

	// ExitBuild indicates a configure, compile, or install stage failed.
	ExitBuild = 64

	// ExitServe indicates llama-server could not be started.
	ExitServe = 128
)

// exitCodeFor maps the internal error taxonomy to the process exit
// code. This is the only place the numeric mapping exists.
func exitCodeFor(kind errkind.Kind) int {
	switch kind {
	case errkind.KindUserAborted:
		return ExitSuccess
	case errkind.KindRootExecution:
		return ExitRootExecution
	case errkind.KindPrivilegeUnavailable:
		return ExitPrivilege
	case errkind.KindUnsupportedPlatform:
		return ExitUnsupportedPlatform
	case errkind.KindPackageInstallFailed:
		return ExitPackageInstall
	case errkind.KindCloneFailed, errkind.KindUpdateConflict:
		return ExitSource
	case errkind.KindConfigureFailed, errkind.KindCompileFailed, errkind.KindInstallFailed:
		return ExitBuild
	case errkind.KindServeFailed:
		return ExitServe
	default:
		return ExitGeneral
	}
}

// exitWithCode exits with the specified exit code.
func exitWithCode(code int) {
	os.Exit(code)
}
