// Package artifact manages the in-progress skill package: its file tree,
// the fixed structural template, and the SKILL.md metadata.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/skillforge/internal/sanitize"
)

// Store errors. Each one indicates a builder defect, not a fixable gap in the
// generated implementation, so callers abort the build on any of them.
var (
	// ErrInvalidPath indicates the path failed sandbox validation.
	ErrInvalidPath = errors.New("invalid artifact path")

	// ErrSizeExceeded indicates a file would exceed MaxFileSize.
	ErrSizeExceeded = errors.New("file size exceeded")

	// ErrNotFound indicates an append to a path that was never written.
	ErrNotFound = errors.New("file not found")
)

// MaxFileSize is the byte limit for any single artifact file.
const MaxFileSize = 100_000

// Artifact is the finished skill package handed back to the caller after a
// successful build.
type Artifact struct {
	ID       string
	Name     string
	Metadata Metadata
	Files    map[string][]byte
}

// Store holds one build's file tree in memory. Files only reach disk through
// Persist, which the controller calls after all gates pass; an aborted build's
// contents are simply dropped with the Store.
//
// A Store is owned by exactly one build invocation and is not safe for
// concurrent use.
type Store struct {
	files map[string][]byte
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{files: make(map[string][]byte)}
}

// Write creates or fully replaces a file.
func (s *Store) Write(path string, content []byte) error {
	clean, err := s.checkPath(path)
	if err != nil {
		return err
	}
	if len(content) > MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrSizeExceeded, clean, len(content), MaxFileSize)
	}

	s.files[clean] = append([]byte(nil), content...)
	return nil
}

// Append concatenates content to an existing file. Used to add successive
// gates' assertions to the single test script.
func (s *Store) Append(path string, content []byte) error {
	clean, err := s.checkPath(path)
	if err != nil {
		return err
	}

	existing, ok := s.files[clean]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	if len(existing)+len(content) > MaxFileSize {
		return fmt.Errorf("%w: %s would be %d bytes, limit %d",
			ErrSizeExceeded, clean, len(existing)+len(content), MaxFileSize)
	}

	s.files[clean] = append(existing, content...)
	return nil
}

// Read returns a copy of a file's content.
func (s *Store) Read(path string) ([]byte, error) {
	clean, err := s.checkPath(path)
	if err != nil {
		return nil, err
	}
	content, ok := s.files[clean]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, clean)
	}
	return append([]byte(nil), content...), nil
}

// Len returns the number of files currently in the store.
func (s *Store) Len() int {
	return len(s.files)
}

// Snapshot returns an independent copy of the current file set.
func (s *Store) Snapshot() map[string][]byte {
	out := make(map[string][]byte, len(s.files))
	for path, content := range s.files {
		out[path] = append([]byte(nil), content...)
	}
	return out
}

// Complete reports whether the store holds exactly the four canonical files.
// A successful build ends in this state and no other.
func (s *Store) Complete() bool {
	if len(s.files) != len(sanitize.CanonicalPaths()) {
		return false
	}
	for _, p := range sanitize.CanonicalPaths() {
		if _, ok := s.files[p]; !ok {
			return false
		}
	}
	return true
}

// Persist writes the file tree under dir. Scripts are made executable; other
// files are plain. Parent directories are created as needed.
func (s *Store) Persist(dir string) error {
	for path, content := range s.files {
		dst := filepath.Join(dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
		}

		mode := os.FileMode(0o644)
		if path == sanitize.PathRunScript || path == sanitize.PathTestScript {
			mode = 0o755
		}
		if err := os.WriteFile(dst, content, mode); err != nil {
			return fmt.Errorf("writing %s: %w", dst, err)
		}
	}
	return nil
}

// checkPath validates a path and returns its canonical (cleaned) form.
func (s *Store) checkPath(path string) (string, error) {
	if err := sanitize.ValidateArtifactPath(path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	return filepath.ToSlash(filepath.Clean(path)), nil
}
