// Package pathutil confines user-supplied paths to the directories a sweep
// may read from and write to.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/simsweep/internal/constants"
)

var (
	// ErrEmptyPath is returned for an empty path.
	ErrEmptyPath = errors.New("path is empty")

	// ErrNullByte is returned for a path containing a NUL character.
	ErrNullByte = errors.New("path contains null byte")

	// ErrOutsideAllowed is returned for a path that resolves outside every
	// allowed directory.
	ErrOutsideAllowed = errors.New("outside allowed directories")
)

// RedactPath reduces a full path to .../<parent>/<basename> for safe error messages.
// For example, "/home/user/.simsweep/config.yaml" becomes ".../.simsweep/config.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// Sandbox resolves paths against a project root and rejects any that leave
// its allowed directories.
type Sandbox struct {
	root    string
	allowed []string
}

// NewSandbox allows the project root, the output directory (relative to
// root unless absolute) and ~/.simsweep/.
func NewSandbox(root, outputDir string) (*Sandbox, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	dirs, err := AllowedSweepDirs(absRoot, outputDir)
	if err != nil {
		return nil, err
	}
	return &Sandbox{root: absRoot, allowed: dirs}, nil
}

// Root returns the absolute project root.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve makes path absolute against the project root and checks that it
// stays inside an allowed directory after following symlinks.
func (s *Sandbox) Resolve(path string) (string, error) {
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	if err := ValidatePath(path, s.allowed); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}

// AllowedSweepDirs returns the project root, the output directory (relative
// to root unless absolute) and ~/.simsweep/.
func AllowedSweepDirs(root, outputDir string) ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dirs := []string{root}
	if outputDir != "" {
		if !filepath.IsAbs(outputDir) {
			outputDir = filepath.Join(root, outputDir)
		}
		dirs = append(dirs, outputDir)
	}
	return append(dirs, filepath.Join(homeDir, constants.ConfigDirName)), nil
}

// ValidatePath checks that path, with symlinks in its existing ancestors
// resolved, lies within one of allowedDirs.
func ValidatePath(path string, allowedDirs []string) error {
	switch {
	case path == "":
		return fmt.Errorf("path validation failed: %w", ErrEmptyPath)
	case strings.ContainsRune(path, '\x00'):
		return fmt.Errorf("path validation failed: %w", ErrNullByte)
	case len(allowedDirs) == 0:
		return errors.New("path validation failed: no allowed directories configured")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}
	// The leaf may not exist yet; only its ancestors are resolved.
	resolvedDir, err := resolveExisting(filepath.Dir(absPath))
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	resolved := filepath.Join(resolvedDir, filepath.Base(absPath))

	for _, dir := range allowedDirs {
		base, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if base, err = resolveExisting(base); err != nil {
			continue
		}
		if within(resolved, base) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q is %w", RedactPath(absPath), ErrOutsideAllowed)
}

// resolveExisting follows symlinks in the deepest existing ancestor of dir
// and re-appends the missing tail.
func resolveExisting(dir string) (string, error) {
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("cannot resolve path: %s", RedactPath(dir))
		}
		tail = append(tail, filepath.Base(dir))
		dir = parent
	}
}

// within reports whether path is base or lies below it.
func within(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
