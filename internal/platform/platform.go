// Package platform detects the host's package-manager family and maps
// logical dependency classes to distro-specific package lists.
package platform

import (
	"os/exec"

	"github.com/teleprint-me/agent/internal/log"
)

// Family identifies a package-manager ecosystem.
type Family int

const (
	// FamilyUnknown means no recognized package manager was found.
	FamilyUnknown Family = iota

	// FamilyDebian covers apt-based systems (Debian, Ubuntu, Mint).
	FamilyDebian

	// FamilyFedora covers dnf-based systems (Fedora, RHEL, Rocky).
	FamilyFedora

	// FamilyArch covers pacman-based systems (Arch, Manjaro).
	FamilyArch
)

// String returns the family name used in logs and the doctor report.
func (f Family) String() string {
	switch f {
	case FamilyDebian:
		return "debian"
	case FamilyFedora:
		return "fedora"
	case FamilyArch:
		return "arch"
	default:
		return "unknown"
	}
}

// Platform is the normalized host identity, derived once per run.
// For FamilyUnknown, ID carries the raw os-release identifier so error
// messages can name what was actually found.
type Platform struct {
	Family Family
	ID     string
}

// Supported reports whether packages can be installed on this platform.
func (p Platform) Supported() bool {
	return p.Family != FamilyUnknown
}

func (p Platform) String() string {
	if p.Family == FamilyUnknown && p.ID != "" {
		return "unknown(" + p.ID + ")"
	}
	return p.Family.String()
}

// managerProbes is the detection order. First match wins: a host with
// more than one manager on PATH (say a Fedora container with an apt
// shim) must resolve the same way every run, so the order is fixed
// here and nowhere else.
var managerProbes = []struct {
	executable string
	family     Family
}{
	{"apt-get", FamilyDebian},
	{"dnf", FamilyFedora},
	{"pacman", FamilyArch},
}

// Resolver detects the host platform. The zero value is not usable;
// call NewResolver.
type Resolver struct {
	lookPath      func(string) (string, error)
	osReleasePath string
	logger        log.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLookPath substitutes the executable probe, for tests.
func WithLookPath(fn func(string) (string, error)) ResolverOption {
	return func(r *Resolver) { r.lookPath = fn }
}

// WithOSReleasePath substitutes the os-release file location, for tests.
func WithOSReleasePath(path string) ResolverOption {
	return func(r *Resolver) { r.osReleasePath = path }
}

// WithLogger sets the resolver's logger.
func WithLogger(l log.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a host platform resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		lookPath:      exec.LookPath,
		osReleasePath: "/etc/os-release",
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve probes for known package managers in the fixed order and
// returns the first match. When none is found it falls back to the
// os-release ID, wrapped as an unknown platform. Pure with respect to
// host state: no side effects, safe to call repeatedly.
func (r *Resolver) Resolve() Platform {
	for _, probe := range managerProbes {
		path, err := r.lookPath(probe.executable)
		if err != nil {
			continue
		}
		r.logger.Debug("package manager found", "executable", probe.executable, "path", path)
		return Platform{Family: probe.family}
	}

	release, err := ParseOSRelease(r.osReleasePath)
	if err != nil {
		r.logger.Debug("os-release unreadable", "path", r.osReleasePath, "error", err)
		return Platform{Family: FamilyUnknown}
	}
	r.logger.Debug("no package manager found, using os-release", "id", release.ID)
	return Platform{Family: FamilyUnknown, ID: release.ID}
}
