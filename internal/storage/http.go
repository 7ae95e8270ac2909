package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"resty.dev/v3"
)

func init() {
	factory := func(uri string, create bool) (Storage, error) {
		return NewHTTP(uri)
	}
	RegisterScheme("http", factory)
	RegisterScheme("https", factory)
}

// HTTP is read-only storage served by a remote HTTP server. It is intended
// for published parent repositories: data can be fetched and mirrored
// locally but never written back.
type HTTP struct {
	base   string
	client *resty.Client
}

// NewHTTP opens HTTP storage rooted at base, e.g. "https://data.example.org/repo".
func NewHTTP(base string) (*HTTP, error) {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("storage: http root %q must be an http(s) URI", base)
	}
	return &HTTP{base: base, client: resty.New()}, nil
}

// URI implements Storage.
func (s *HTTP) URI() string {
	return s.base
}

func (s *HTTP) url(p string) string {
	p = path.Clean(strings.TrimLeft(p, "/"))
	if p == "." || p == "" {
		return s.base
	}
	return s.base + "/" + p
}

// Exists implements Storage with a HEAD request.
func (s *HTTP) Exists(p string) bool {
	stripped, _ := splitBracket(p)
	res, err := s.client.R().Head(s.url(stripped))
	return err == nil && res.IsSuccess()
}

// Read implements Storage, streaming the response body.
func (s *HTTP) Read(p string) (io.ReadCloser, error) {
	res, err := s.client.R().SetDoNotParseResponse(true).Get(s.url(p))
	if err != nil {
		return nil, fmt.Errorf("storage: reading %s: %w", p, err)
	}
	if !res.IsSuccess() {
		res.Body.Close()
		return nil, fmt.Errorf("storage: reading %s: unexpected status %s", p, res.Status())
	}
	return res.Body, nil
}

// Write implements Storage; HTTP storage never accepts writes.
func (s *HTTP) Write(string, func(w io.Writer) error) error {
	return fmt.Errorf("%w: http storage %s", ErrReadOnly, s.base)
}

// Search implements Storage. Remote listings are not available, so the
// path either exists verbatim or is not found.
func (s *HTTP) Search(p string) []string {
	if s.Exists(p) {
		return []string{p}
	}
	return nil
}

// LocationWithRoot implements Storage.
func (s *HTTP) LocationWithRoot(p string) string {
	return s.url(p)
}

// CopyFile implements Storage; HTTP storage never accepts writes.
func (s *HTTP) CopyFile(string, string) error {
	return fmt.Errorf("%w: http storage %s", ErrReadOnly, s.base)
}

// LocalFile implements Storage by downloading the object to a temporary
// file. The caller owns the returned file and should remove it when done.
func (s *HTTP) LocalFile(p string) (string, error) {
	body, err := s.Read(p)
	if err != nil {
		return "", err
	}
	defer body.Close()

	local := filepath.Join(os.TempDir(), "datashelf-"+uuid.NewString()+filepath.Ext(p))
	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("storage: local file %s: %w", p, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(local)
		return "", fmt.Errorf("storage: local file %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(local)
		return "", fmt.Errorf("storage: local file %s: %w", p, err)
	}
	return local, nil
}
