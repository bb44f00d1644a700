// Package version maintains the build version file and its generated header.
package version

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/phobologic/classkit/internal/fsutil"
)

// Fallback is used when the version file is missing or unparseable.
var Fallback = Version{Major: 0, Minor: 0, Patch: 1}

// Version is a MAJOR.MINOR.PATCH triple.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Parse reads a version string. It reports false unless s has exactly three
// dot-separated runs of decimal digits.
func Parse(s string) (Version, bool) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, false
	}
	var nums [3]int
	for i, p := range parts {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return Version{}, false
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, false
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, true
}

// Header renders the C++ header exposing v as preprocessor defines.
func Header(v Version) string {
	return fmt.Sprintf(`#pragma once
#define BUILD_VERSION_MAJOR %d
#define BUILD_VERSION_MINOR %d
#define BUILD_VERSION_PATCH %d
#define BUILD_VERSION_STRING "%s"
`, v.Major, v.Minor, v.Patch, v)
}

// Bump increments the patch number stored in versionFile and regenerates
// headerFile. It returns the new version.
func Bump(versionFile, headerFile string) (Version, error) {
	current := Fallback
	data, err := os.ReadFile(versionFile)
	switch {
	case err == nil:
		if v, ok := Parse(string(data)); ok {
			current = v
		}
	case !os.IsNotExist(err):
		return Version{}, fmt.Errorf("reading %s: %w", versionFile, err)
	}

	next := current
	next.Patch++

	if err := fsutil.WriteAtomic(versionFile, []byte(next.String()+"\n")); err != nil {
		return Version{}, err
	}
	if err := fsutil.WriteAtomic(headerFile, []byte(Header(next))); err != nil {
		return Version{}, err
	}
	return next, nil
}
