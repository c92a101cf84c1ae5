// Package version provides the semantic version value used to compute releases.
package version

import (
	"cmp"
	"fmt"
	"math"

	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
	"github.com/Masterminds/semver/v3"
)

// BumpKind names which component of a version is incremented.
type BumpKind string

const (
	Major BumpKind = "major"
	Minor BumpKind = "minor"
	Patch BumpKind = "patch"
)

// BumpKinds lists the accepted bump kinds in usage order.
var BumpKinds = []BumpKind{Major, Minor, Patch}

// ParseBumpKind converts a command-line argument into a BumpKind.
func ParseBumpKind(s string) (BumpKind, error) {
	switch BumpKind(s) {
	case Major, Minor, Patch:
		return BumpKind(s), nil
	default:
		return "", apperrors.NewInvalidBumpKindError(s)
	}
}

// Version is an immutable major.minor.patch triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse parses a dotted "major.minor.patch" string.
// Pre-release and build metadata suffixes are rejected.
func Parse(s string) (Version, error) {
	sv, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, apperrors.NewMalformedVersionError(s, err)
	}
	if sv.Prerelease() != "" || sv.Metadata() != "" {
		return Version{}, apperrors.NewMalformedVersionError(s, fmt.Errorf("unexpected suffix in %q", s))
	}
	if sv.Major() > math.MaxInt || sv.Minor() > math.MaxInt || sv.Patch() > math.MaxInt {
		return Version{}, apperrors.NewMalformedVersionError(s, fmt.Errorf("component out of range"))
	}

	return Version{
		Major: int(sv.Major()),
		Minor: int(sv.Minor()),
		Patch: int(sv.Patch()),
	}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Bump returns the next version for the given kind. The receiver is not modified.
func (v Version) Bump(kind BumpKind) (Version, error) {
	switch kind {
	case Major:
		return Version{Major: v.Major + 1}, nil
	case Minor:
		return Version{Major: v.Major, Minor: v.Minor + 1}, nil
	case Patch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}, nil
	default:
		return Version{}, apperrors.NewInvalidBumpKindError(string(kind))
	}
}

// String returns "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 comparing v to other component by component.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return cmp.Compare(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmp.Compare(v.Minor, other.Minor)
	default:
		return cmp.Compare(v.Patch, other.Patch)
	}
}

// Less reports whether v orders before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}
