// Package project parses typedown.toml and resolves a project's member
// directories and declared dependencies. Grounded on the teacher's own
// model for this concern is sparse (codenerd has no workspace manifest),
// so this package follows vovakirdan-surge's internal/project instead —
// the nearest-fit example for "walk up to a manifest, then resolve a
// declared module table against the filesystem."
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ManifestName is the fixed filename every project root carries.
const ManifestName = "typedown.toml"

// FindManifest walks up from startDir looking for typedown.toml, stopping
// at the filesystem root. This is the same upward walk resolve_id uses to
// find the project root (spec.md §4.C), applied here to config discovery
// instead of identifier resolution.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			return candidate, true, nil
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat %q: %w", candidate, statErr)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// FindRoot returns the directory containing typedown.toml, if any.
func FindRoot(startDir string) (root string, ok bool, err error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return "", ok, err
	}
	return filepath.Dir(manifestPath), true, nil
}

func pathWithin(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
