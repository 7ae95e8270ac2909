package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/vk/datashelf/internal/fsutil"
)

func init() {
	RegisterScheme("file", func(uri string, create bool) (Storage, error) {
		return NewPosix(uri, create)
	})
}

// Posix is local filesystem storage rooted at a directory. Paths ending in
// ".gz" are transparently gzip-compressed on write and decompressed on read.
type Posix struct {
	uri  string
	root string
}

// NewPosix opens posix storage at uri, which may be a bare path or a
// file:// URI. With create set the root directory is made if missing;
// otherwise a missing root is an error.
func NewPosix(uri string, create bool) (*Posix, error) {
	root := strings.TrimPrefix(uri, "file://")
	root = filepath.Clean(root)

	if create {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("storage: creating root %s: %w", root, err)
		}
	} else if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("storage: opening root %s: %w", root, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("storage: root %s is not a directory", root)
	}

	return &Posix{uri: uri, root: root}, nil
}

// Root returns the local root directory.
func (s *Posix) Root() string {
	return s.root
}

// URI implements Storage.
func (s *Posix) URI() string {
	return s.uri
}

// Exists implements Storage.
func (s *Posix) Exists(path string) bool {
	return s.Search(path) != nil
}

// Read implements Storage. The returned reader decompresses ".gz" paths.
func (s *Posix) Read(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, path))
	if err != nil {
		return nil, fmt.Errorf("storage: reading %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: reading %s: %w", path, err)
	}
	return &gzipReadCloser{zr: zr, file: f}, nil
}

type gzipReadCloser struct {
	zr   *gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipReadCloser) Close() error {
	zErr := g.zr.Close()
	fErr := g.file.Close()
	if zErr != nil {
		return zErr
	}
	return fErr
}

// Write implements Storage. The object is staged in a temporary file next to
// its final location and renamed into place, so readers never observe a
// partial write.
func (s *Posix) Write(path string, put func(w io.Writer) error) error {
	full := filepath.Join(s.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage: writing %s: %w", path, err)
	}

	tmp := full + ".tmp-" + uuid.NewString()
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("storage: writing %s: %w", path, err)
	}

	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}

	if err := put(w); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("storage: writing %s: %w", path, err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("storage: writing %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: writing %s: %w", path, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: writing %s: %w", path, err)
	}
	return nil
}

// Search implements Storage for the common case: look for path under this
// storage's root, following _parent links.
func (s *Posix) Search(path string) []string {
	return SearchRoot(s.root, path, true)
}

// SearchRoot looks for path under root. A trailing bracket directive is
// stripped for matching and re-attached on results. With searchParents set,
// a _parent link in the root is followed (and chained) until the path is
// found or no further parent exists. Glob metacharacters in path are
// honored; results are sorted and relative to the directory they were
// found in.
func SearchRoot(root, path string, searchParents bool) []string {
	stripped, directive := splitBracket(path)

	dir := root
	for {
		matches, err := filepath.Glob(filepath.Join(dir, stripped))
		if err == nil && len(matches) > 0 {
			sort.Strings(matches)
			results := make([]string, 0, len(matches))
			for _, m := range matches {
				rel := fsutil.RelativePath(dir, m)
				results = append(results, rel+directive)
			}
			return results
		}
		if !searchParents {
			return nil
		}
		parent := fsutil.ParentLink(dir)
		if parent == "" {
			return nil
		}
		dir = parent
	}
}

// LocationWithRoot implements Storage.
func (s *Posix) LocationWithRoot(path string) string {
	return filepath.Join(s.root, path)
}

// CopyFile implements Storage. Bytes are duplicated verbatim, never through
// the gzip layer, so an already-compressed object is not compressed twice.
func (s *Posix) CopyFile(from, to string) error {
	src, err := os.Open(filepath.Join(s.root, from))
	if err != nil {
		return fmt.Errorf("storage: copying %s: %w", from, err)
	}
	defer src.Close()

	full := filepath.Join(s.root, to)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("storage: copying to %s: %w", to, err)
	}
	tmp := full + ".tmp-" + uuid.NewString()
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("storage: copying to %s: %w", to, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("storage: copying to %s: %w", to, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: copying to %s: %w", to, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: copying to %s: %w", to, err)
	}
	return nil
}

// LocalFile implements Storage. Posix storage is already local, so the
// object's own path is returned.
func (s *Posix) LocalFile(path string) (string, error) {
	full := filepath.Join(s.root, path)
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("storage: local file %s: %w", path, err)
	}
	return full, nil
}
