// Package semver parses and orders CUDA toolkit versions such as "12.4" or
// "11.8.89", as found in versioned install directories and version files.
package semver

import (
	"path/filepath"
	"strconv"
	"strings"
)

// SemVer is a dotted numeric version.
type SemVer struct {
	Original string // Original string (e.g., "12.4.1" or "v12.4")
	Parts    []int  // Parsed numeric parts [12, 4, 1]
}

// Parse parses a version string. Components stop at the first one without
// a leading digit; a string with no numeric component is unknown.
func Parse(v string) SemVer {
	original := v
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")

	var nums []int
	for _, part := range strings.Split(v, ".") {
		end := 0
		for end < len(part) && part[end] >= '0' && part[end] <= '9' {
			end++
		}
		if end == 0 {
			break
		}
		n, err := strconv.Atoi(part[:end])
		if err != nil {
			break
		}
		nums = append(nums, n)
		if end < len(part) {
			// "3-beta": keep 3, drop the suffix and anything after it
			break
		}
	}

	return SemVer{Original: original, Parts: nums}
}

// FromInstallDir extracts the version of a versioned install directory,
// e.g. "/usr/local/cuda-12.4" yields 12.4. Unversioned directories yield
// an unknown version.
func FromInstallDir(path string) SemVer {
	base := filepath.Base(filepath.Clean(path))
	_, suffix, ok := strings.Cut(base, "-")
	if !ok {
		return SemVer{}
	}
	return Parse(suffix)
}

// String returns the original version string
func (v SemVer) String() string {
	return v.Original
}

// Normalized returns the numeric parts joined by dots.
func (v SemVer) Normalized() string {
	parts := make([]string, len(v.Parts))
	for i, p := range v.Parts {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// IsUnknown reports whether no numeric component was parsed.
func (v SemVer) IsUnknown() bool {
	return len(v.Parts) == 0
}

// Major returns the first component, or 0 when unknown.
func (v SemVer) Major() int {
	if v.IsUnknown() {
		return 0
	}
	return v.Parts[0]
}

// Compare compares two versions
// Returns: -1 if v < other, 0 if equal, 1 if v > other
// Unknown versions sort before every known one.
func (v SemVer) Compare(other SemVer) int {
	switch {
	case v.IsUnknown() && other.IsUnknown():
		return 0
	case v.IsUnknown():
		return -1
	case other.IsUnknown():
		return 1
	}

	maxLen := max(len(v.Parts), len(other.Parts))
	for i := range maxLen {
		vPart, otherPart := 0, 0
		if i < len(v.Parts) {
			vPart = v.Parts[i]
		}
		if i < len(other.Parts) {
			otherPart = other.Parts[i]
		}
		if vPart < otherPart {
			return -1
		}
		if vPart > otherPart {
			return 1
		}
	}
	return 0
}

// Less returns true if v < other (for sorting)
func (v SemVer) Less(other SemVer) bool {
	return v.Compare(other) < 0
}

// Greater returns true if v > other (for sorting)
func (v SemVer) Greater(other SemVer) bool {
	return v.Compare(other) > 0
}

// Equal returns true if versions are equal
func (v SemVer) Equal(other SemVer) bool {
	return v.Compare(other) == 0
}

// SemVers is a slice of SemVer that implements sort.Interface
type SemVers []SemVer

func (v SemVers) Len() int           { return len(v) }
func (v SemVers) Swap(i, j int)      { v[i], v[j] = v[j], v[i] }
func (v SemVers) Less(i, j int) bool { return v[i].Less(v[j]) }
