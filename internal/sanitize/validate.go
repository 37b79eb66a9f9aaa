// Package sanitize provides path and identifier validation for the build sandbox.
package sanitize

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Validation errors for sandbox checks.
var (
	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = fmt.Errorf("path cannot be empty")

	// ErrAbsolutePath indicates an absolute path was provided where relative was expected.
	ErrAbsolutePath = fmt.Errorf("absolute path not allowed")

	// ErrPathTraversal indicates a path contains directory traversal sequences.
	ErrPathTraversal = fmt.Errorf("path contains directory traversal")

	// ErrPathNotAllowed indicates a path outside the skill package template.
	ErrPathNotAllowed = fmt.Errorf("path not in skill template")

	// ErrInvalidSkillName indicates the skill name format is invalid.
	ErrInvalidSkillName = fmt.Errorf("invalid skill name format")
)

// Canonical template locations for a generated skill package. Every file the
// builder writes must land on exactly one of these relative paths.
const (
	PathSkillDoc   = "SKILL.md"
	PathRunScript  = "scripts/run.sh"
	PathTestScript = "scripts/test.sh"
	PathExamples   = "references/examples.md"
)

// skillNamePattern matches kebab-case skill names: lowercase alphanumeric
// segments separated by single hyphens.
var skillNamePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CanonicalPaths returns the four permitted template locations in layout order.
func CanonicalPaths() []string {
	return []string{PathSkillDoc, PathRunScript, PathTestScript, PathExamples}
}

// IsCanonicalPath reports whether p is one of the permitted template locations.
// The path is compared as-is; callers validate first.
func IsCanonicalPath(p string) bool {
	switch p {
	case PathSkillDoc, PathRunScript, PathTestScript, PathExamples:
		return true
	}
	return false
}

// ValidateArtifactPath checks a path destined for the artifact store:
//   - must be non-empty and relative
//   - must not contain directory traversal (..), before or after cleaning
//   - must be exactly one of the canonical template locations
//
// The check is pure; no filesystem access is performed.
func ValidateArtifactPath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if filepath.IsAbs(path) {
		return fmt.Errorf("%w: %q", ErrAbsolutePath, path)
	}

	// Check for traversal before any processing
	if containsTraversal(path) {
		return fmt.Errorf("%w: %q", ErrPathTraversal, path)
	}

	// Re-check after cleaning (handles edge cases like "scripts/x/../../..")
	clean := filepath.ToSlash(filepath.Clean(path))
	if containsTraversal(clean) {
		return fmt.Errorf("%w: %q resolves to traversal", ErrPathTraversal, path)
	}

	if !IsCanonicalPath(clean) {
		return fmt.Errorf("%w: %q", ErrPathNotAllowed, path)
	}

	return nil
}

// containsTraversal reports whether any path segment is "..".
func containsTraversal(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// ValidateSkillName checks a derived skill name: kebab-case, 3 to 50 characters.
func ValidateSkillName(name string) error {
	if len(name) < 3 || len(name) > 50 {
		return fmt.Errorf("%w: must be 3-50 characters, got %d", ErrInvalidSkillName, len(name))
	}
	if !skillNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q is not kebab-case", ErrInvalidSkillName, name)
	}
	return nil
}
