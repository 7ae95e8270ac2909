// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// RelativePath returns the path to target relative to base. When no relative
// form exists (different volumes, unparseable inputs) the target is returned
// unchanged, so callers can store the result and resolve it later with
// AbsolutePath.
func RelativePath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}

// AbsolutePath resolves a path that may be relative to base. Absolute inputs
// are returned cleaned but otherwise untouched.
func AbsolutePath(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(base, path))
}

// ParentLink returns the location a repository's "_parent" entry points at.
// The entry is usually a symlink, but a plain directory named _parent is
// accepted too and its own path is returned. A relative symlink target is
// resolved against root. An empty string means the repository has no parent
// link.
func ParentLink(root string) string {
	linkPath := filepath.Join(root, "_parent")
	if _, err := os.Lstat(linkPath); err != nil {
		return ""
	}
	if target, err := os.Readlink(linkPath); err == nil {
		return AbsolutePath(root, target)
	}
	return linkPath
}
