package version

import (
	"fmt"
	"strconv"
)

// Set at build time with -ldflags "-X github.com/sahib/sniffcap/version.Major=...".
var (
	// Major will be incremented on incompatible releases.
	Major = "0"
	// Minor will be incremented on feature releases.
	Minor = "1"
	// Patch should be incremented on every released change.
	Patch = "0"
	// ReleaseType is "beta", "alpha" or "" for final releases
	ReleaseType = "beta"
	// GitRev is the current HEAD of git of this release
	GitRev = ""
	// BuildTime is the ISO8601 timestamp of the current build
	BuildTime = ""
)

func parseVersionNum(v, what string) (int, error) {
	if v == "" {
		return 0, nil
	}

	num, err := strconv.Atoi(v)
	if err != nil {
		return -1, fmt.Errorf("cannot parse %s version %q: %v", what, v, err)
	}

	return num, nil
}

// Numbers returns a tuple of (major, minor, patch)
func Numbers() (int, int, int, error) {
	major, err := parseVersionNum(Major, "major")
	if err != nil {
		return -1, -1, -1, err
	}

	minor, err := parseVersionNum(Minor, "minor")
	if err != nil {
		return -1, -1, -1, err
	}

	patch, err := parseVersionNum(Patch, "patch")
	if err != nil {
		return -1, -1, -1, err
	}

	return major, minor, patch, nil
}

// String returns a vMaj.Min.Patch string.
func String() string {
	base := fmt.Sprintf("v%s.%s.%s", Major, Minor, Patch)
	if ReleaseType != "" {
		base += "-" + ReleaseType
	}

	if len(GitRev) >= 7 {
		base += "+" + GitRev[:7]
	}

	return base
}
