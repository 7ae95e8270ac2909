// Package storage abstracts where repository bytes live. Backends register
// themselves under a URI scheme; repositories open storages through the
// scheme table without knowing which backend serves them.
package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var (
	// ErrUnknownScheme indicates a URI whose scheme has no registered backend.
	ErrUnknownScheme = errors.New("storage: unknown scheme")
	// ErrReadOnly is returned by backends that cannot write.
	ErrReadOnly = errors.New("storage: read-only")
)

// Storage is one place repository files live: a directory tree, a remote
// server. Paths handed to a Storage are always relative to its root.
type Storage interface {
	// URI returns the root location this storage was opened with.
	URI() string
	// Exists reports whether path names an existing object.
	Exists(path string) bool
	// Read opens path for reading.
	Read(path string) (io.ReadCloser, error)
	// Write creates or replaces path with the bytes produced by put.
	Write(path string, put func(w io.Writer) error) error
	// Search looks path up, tolerating trailing bracket directives and, for
	// backends that support it, parent repository links. Found locations are
	// returned with any bracket directive re-attached; nil means no match.
	Search(path string) []string
	// LocationWithRoot returns the path joined onto the storage root.
	LocationWithRoot(path string) string
	// CopyFile duplicates an object within the storage.
	CopyFile(from, to string) error
	// LocalFile makes the object available on the local filesystem and
	// returns its path, downloading to a temporary file when the storage is
	// remote.
	LocalFile(path string) (string, error)
}

// Factory opens a storage rooted at uri. create indicates the caller intends
// to write and the root should be brought into existence if missing.
type Factory func(uri string, create bool) (Storage, error)

var (
	schemesMu sync.RWMutex
	schemes   = make(map[string]Factory)
)

// RegisterScheme associates a backend factory with a URI scheme. Later
// registrations for the same scheme replace earlier ones.
func RegisterScheme(scheme string, factory Factory) {
	schemesMu.Lock()
	defer schemesMu.Unlock()
	schemes[scheme] = factory
}

// Open parses the scheme off uri and hands the URI to the matching backend.
// A bare path with no scheme is served by the "file" backend.
func Open(uri string, create bool) (Storage, error) {
	scheme := "file"
	if i := strings.Index(uri, "://"); i >= 0 {
		scheme = uri[:i]
	}

	schemesMu.RLock()
	factory, ok := schemes[scheme]
	schemesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q in %q", ErrUnknownScheme, scheme, uri)
	}
	return factory(uri, create)
}

// splitBracket separates a trailing bracket directive from a path:
// "foo.dat[3]" becomes ("foo.dat", "[3]").
func splitBracket(path string) (stripped, directive string) {
	if i := strings.Index(path, "["); i >= 0 {
		return path[:i], path[i:]
	}
	return path, ""
}
