// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package dex

import (
	"fmt"
	"regexp"
	"strconv"
)

// semverRE matches a full semantic version, capturing the major, minor, and
// patch numbers, the pre-release, and the build metadata.
var semverRE = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
	`(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?(?:\+([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?$`)

// Semver models a semantic version major.minor.patch
type Semver struct {
	Major uint32
	Minor uint32
	Patch uint32
	// PreRelease and Build are the optional pre-release and build metadata
	// portions.
	PreRelease string
	Build      string
}

// NewSemver returns a new Semver with the version major.minor.patch
func NewSemver(major, minor, patch uint32) Semver {
	return Semver{Major: major, Minor: minor, Patch: patch}
}

// ParseSemver parses a full semantic version string such as 0.1.0-pre+dev.
func ParseSemver(s string) (Semver, error) {
	m := semverRE.FindStringSubmatch(s)
	if m == nil {
		return Semver{}, fmt.Errorf("malformed version string %q: does not conform to "+
			"semver specification", s)
	}
	var nums [3]uint32
	for i, part := range []string{"major", "minor", "patch"} {
		v, err := strconv.ParseUint(m[i+1], 10, 32)
		if err != nil {
			return Semver{}, fmt.Errorf("malformed semver %s: %w", part, err)
		}
		nums[i] = uint32(v)
	}
	return Semver{
		Major:      nums[0],
		Minor:      nums[1],
		Patch:      nums[2],
		PreRelease: m[4],
		Build:      m[5],
	}, nil
}

// String formats the Semver as major.minor.patch[-prerelease][+build].
func (s Semver) String() string {
	str := fmt.Sprintf("%d.%d.%d", s.Major, s.Minor, s.Patch)
	if s.PreRelease != "" {
		str += "-" + s.PreRelease
	}
	if s.Build != "" {
		str += "+" + s.Build
	}
	return str
}
