package compat

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/roach88/ontogen/internal/domainerr"
)

// Bump is a semantic version increment.
type Bump string

const (
	BumpNone  Bump = "none"
	BumpPatch Bump = "patch"
	BumpMinor Bump = "minor"
	BumpMajor Bump = "major"
)

// RequiredBump maps a compatibility level to the bump it demands.
func RequiredBump(l Level) Bump {
	switch l {
	case Breaking:
		return BumpMajor
	case Additive:
		return BumpMinor
	default:
		return BumpPatch
	}
}

// BumpRank orders bumps: none < patch < minor < major.
func BumpRank(b Bump) int {
	switch b {
	case BumpPatch:
		return 1
	case BumpMinor:
		return 2
	case BumpMajor:
		return 3
	default:
		return 0
	}
}

// DeclaredBump infers the bump taken between two MAJOR.MINOR.PATCH
// versions. A downgrade is a Policy error; a malformed version is an error.
func DeclaredBump(oldVersion, newVersion string) (Bump, error) {
	oldV, err := canonicalVersion(oldVersion)
	if err != nil {
		return "", err
	}
	newV, err := canonicalVersion(newVersion)
	if err != nil {
		return "", err
	}

	switch c := semver.Compare(oldV, newV); {
	case c == 0:
		return BumpNone, nil
	case c > 0:
		return "", domainerr.Policy(fmt.Sprintf("version went backwards from %s to %s", oldVersion, newVersion), nil)
	}

	switch {
	case semver.Major(oldV) != semver.Major(newV):
		return BumpMajor, nil
	case semver.MajorMinor(oldV) != semver.MajorMinor(newV):
		return BumpMinor, nil
	default:
		return BumpPatch, nil
	}
}

// canonicalVersion validates a dotted MAJOR.MINOR.PATCH version and returns
// it in the "v"-prefixed form the semver package expects.
func canonicalVersion(version string) (string, error) {
	v := "v" + strings.TrimPrefix(version, "v")
	if !semver.IsValid(v) || semver.Canonical(v) != v {
		return "", fmt.Errorf("invalid version %q: expected MAJOR.MINOR.PATCH", version)
	}
	return v, nil
}

// CheckPolicy enforces BumpRank(declared) >= BumpRank(required).
//
// A violation is a Policy domain error carrying the findings whose own
// required bump exceeds the declared one.
func CheckPolicy(declared, required Bump, findings []Finding) error {
	if BumpRank(declared) >= BumpRank(required) {
		return nil
	}

	var triggering []string
	for _, f := range findings {
		if BumpRank(RequiredBump(f.Level)) > BumpRank(declared) {
			triggering = append(triggering, f.String())
		}
	}
	return domainerr.Policy(
		fmt.Sprintf("declared %s bump is below the required %s bump", declared, required),
		triggering,
	)
}
