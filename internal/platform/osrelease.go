package platform

import (
	"bufio"
	"os"
	"strings"
)

// OSRelease contains parsed values from /etc/os-release.
type OSRelease struct {
	ID     string   // Canonical distro identifier (e.g., "ubuntu", "fedora")
	IDLike []string // Parent/similar distros (e.g., ["debian"] for Ubuntu)
	Name   string   // PRETTY_NAME, for the doctor report
}

// ParseOSRelease parses the /etc/os-release file format.
// Returns an error if the file cannot be read.
func ParseOSRelease(path string) (*OSRelease, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	release := &OSRelease{}
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		// Remove quotes from value
		value = strings.Trim(value, `"'`)

		switch key {
		case "ID":
			release.ID = value
		case "ID_LIKE":
			// ID_LIKE is space-separated
			release.IDLike = strings.Fields(value)
		case "PRETTY_NAME":
			release.Name = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return release, nil
}
