// Package common provides shared utilities for the DAO runtime.
package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// Common errors
var (
	ErrInvalidVersion = errors.New("invalid semantic version")
)

// Pagination defaults shared by list queries
const (
	DefaultLimit uint32 = 10
	MaxLimit     uint32 = 50
)

// ClampLimit applies the default page size and the maximum
func ClampLimit(limit *uint32, def, max uint32) int {
	if limit == nil {
		return int(def)
	}
	if *limit > max {
		return int(max)
	}
	return int(*limit)
}

// CanonicalVersion normalises "1.2.3" and "v1.2.3" to the "v1.2.3" form
func CanonicalVersion(v string) (string, error) {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return semver.Canonical(v), nil
}

// CompareVersions returns -1, 0 or +1 comparing two semantic versions
func CompareVersions(a, b string) (int, error) {
	ca, err := CanonicalVersion(a)
	if err != nil {
		return 0, err
	}
	cb, err := CanonicalVersion(b)
	if err != nil {
		return 0, err
	}
	return semver.Compare(ca, cb), nil
}

// NowNano returns the current Unix timestamp in nanoseconds
func NowNano() uint64 {
	return uint64(time.Now().UnixNano())
}
