package platform

import "github.com/teleprint-me/agent/internal/errkind"

// PackageClass is a logical dependency set, independent of distro.
type PackageClass int

const (
	// ClassToolchain is everything needed to configure and compile the
	// engine: compilers, cmake, git, and the curl development headers
	// llama.cpp links against.
	ClassToolchain PackageClass = iota

	// ClassVulkan is the Vulkan loader, headers, and shader toolchain
	// required by the Vulkan backend. Only installed when that backend
	// is selected.
	ClassVulkan
)

func (c PackageClass) String() string {
	switch c {
	case ClassToolchain:
		return "toolchain"
	case ClassVulkan:
		return "vulkan"
	default:
		return "unknown"
	}
}

// catalog maps (family, class) to the distro-correct package list.
// These are static data on purpose: package names for the same logical
// dependency diverge across distros (the Vulkan loader alone ships as
// libvulkan-dev, vulkan-loader-devel, and vulkan-icd-loader) and
// cannot be derived. Order is preserved so the generated install
// command is reproducible.
var catalog = map[Family]map[PackageClass][]string{
	FamilyDebian: {
		ClassToolchain: {"git", "cmake", "build-essential", "pkg-config", "libcurl4-openssl-dev"},
		ClassVulkan:    {"libvulkan-dev", "vulkan-validationlayers", "glslang-tools"},
	},
	FamilyFedora: {
		ClassToolchain: {"git", "cmake", "gcc-c++", "make", "pkgconf-pkg-config", "libcurl-devel"},
		ClassVulkan:    {"vulkan-loader-devel", "vulkan-headers", "vulkan-validation-layers", "glslang"},
	},
	FamilyArch: {
		ClassToolchain: {"git", "cmake", "base-devel", "pkgconf", "curl"},
		ClassVulkan:    {"vulkan-icd-loader", "vulkan-headers", "vulkan-validation-layers", "glslang"},
	},
}

// PackagesFor returns the package list for a platform and class.
// The returned slice is a copy; callers may not mutate the catalog.
// Fails with an unsupported-platform error for unrecognized hosts.
func PackagesFor(p Platform, class PackageClass) ([]string, error) {
	classes, ok := catalog[p.Family]
	if !ok {
		return nil, errkind.New(errkind.KindUnsupportedPlatform,
			"no package catalog for platform %s", p)
	}
	packages, ok := classes[class]
	if !ok {
		return nil, errkind.New(errkind.KindUnsupportedPlatform,
			"no %s packages for platform %s", class, p)
	}
	out := make([]string, len(packages))
	copy(out, packages)
	return out, nil
}
