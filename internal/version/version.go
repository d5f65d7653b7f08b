// Package version provides version information for the server and the GDB
// it drives.
package version

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

const (
	// Version is the current version of gdb-mcp
	Version = "0.1.0"

	// MinGDB is the oldest GDB with the MI3 interpreter
	MinGDB = ">= 9.1"
)

// gdbVersion matches a dotted version number such as "12.1" or "13.2.90"
var gdbVersion = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// GDBInfo describes the GDB binary found at a path
type GDBInfo struct {
	Path       string
	Version    *semver.Version
	Compatible bool
}

// ParseGDBVersion extracts the version from the first line of
// `gdb --version`, e.g. "GNU gdb (Ubuntu 12.1-0ubuntu1~22.04) 12.1".
// Distributions put their own numbers in the parenthesized part, so the last
// dotted number on the line wins.
func ParseGDBVersion(output string) (*semver.Version, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	matches := gdbVersion.FindAllString(line, -1)
	if len(matches) == 0 {
		return nil, errors.Errorf("no gdb version in %q", line)
	}
	v, err := semver.NewVersion(matches[len(matches)-1])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid gdb version %q", matches[len(matches)-1])
	}
	return v, nil
}

// CheckGDB runs `path --version` and reports whether it supports MI3
func CheckGDB(ctx context.Context, path string) (*GDBInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to run %s --version", path)
	}

	v, err := ParseGDBVersion(string(out))
	if err != nil {
		return nil, err
	}

	return &GDBInfo{
		Path:       path,
		Version:    v,
		Compatible: Satisfies(v),
	}, nil
}

// Satisfies reports whether v meets MinGDB
func Satisfies(v *semver.Version) bool {
	c, err := semver.NewConstraint(MinGDB)
	if err != nil {
		return false
	}
	return c.Check(v)
}
