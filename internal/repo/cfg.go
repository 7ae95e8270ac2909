package repo

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/vk/datashelf/internal/fsutil"
	"github.com/vk/datashelf/internal/policy"
	"github.com/vk/datashelf/internal/storage"
)

// CfgFileName is the repository configuration file, stored at the top of
// every repository root.
const CfgFileName = "shelf.yaml"

var (
	// ErrCfgMismatch indicates an attempt to extend a cfg whose
	// non-extendable fields (root, policy) differ.
	ErrCfgMismatch = errors.New("repo: cfg mismatch")
	// ErrParentsMismatch indicates a parents list that does not extend the
	// existing one at the tail.
	ErrParentsMismatch = errors.New("repo: parents mismatch")
)

// Cfg is the persisted description of a repository: where it lives, which
// repositories it descends from, and its policy. Parents are stored relative
// to the root so a repository tree can be relocated wholesale.
type Cfg struct {
	root    string
	parents []string // normalized: relative to root where possible
	policy  *policy.Policy
	dirty   bool
}

// cfgDoc is the YAML wire form of a Cfg.
type cfgDoc struct {
	Root    string         `yaml:"root,omitempty"`
	Parents []string       `yaml:"parents,omitempty"`
	Policy  map[string]any `yaml:"policy,omitempty"`
}

// NewCfg creates a cfg for a repository rooted at root. A nil pol is
// replaced by an empty policy.
func NewCfg(root string, pol *policy.Policy) *Cfg {
	if pol == nil {
		pol = policy.New()
	}
	return &Cfg{root: root, policy: pol, dirty: true}
}

// LoadCfg reads the repository configuration from a storage backend. The
// storage root wins over any root recorded in the file, since the file may
// have been copied or served from elsewhere.
func LoadCfg(s storage.Storage) (*Cfg, error) {
	r, err := s.Read(CfgFileName)
	if err != nil {
		return nil, fmt.Errorf("repo: loading cfg from %s: %w", s.URI(), err)
	}
	defer r.Close()

	var doc cfgDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("repo: decoding cfg from %s: %w", s.URI(), err)
	}

	return &Cfg{
		root:    s.LocationWithRoot(""),
		parents: doc.Parents,
		policy:  policy.FromMap(doc.Policy),
	}, nil
}

// Save writes the cfg through a storage backend and clears the dirty flag.
func (c *Cfg) Save(s storage.Storage) error {
	doc := cfgDoc{
		Parents: c.parents,
		Policy:  c.policy.Map(),
	}
	err := s.Write(CfgFileName, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return fmt.Errorf("repo: saving cfg to %s: %w", s.URI(), err)
	}
	c.dirty = false
	return nil
}

// Root returns the repository root.
func (c *Cfg) Root() string {
	return c.root
}

// Policy returns the repository policy.
func (c *Cfg) Policy() *policy.Policy {
	return c.policy
}

// Dirty reports whether the cfg has unsaved changes.
func (c *Cfg) Dirty() bool {
	return c.dirty
}

// Parents returns the repository's parents as absolute locations.
func (c *Cfg) Parents() []string {
	out := make([]string, 0, len(c.parents))
	for _, p := range c.parents {
		out = append(out, fsutil.AbsolutePath(c.root, p))
	}
	return out
}

// AddParents appends parents (given as absolute locations) that are not
// already recorded, storing each relative to the root.
func (c *Cfg) AddParents(parents ...string) {
	for _, p := range parents {
		rel := fsutil.RelativePath(c.root, p)
		if !slices.Contains(c.parents, rel) {
			c.parents = append(c.parents, rel)
			c.dirty = true
		}
	}
}

// Extend folds another cfg for the same repository into this one. The only
// extendable value is the parents list: the other list must start with this
// cfg's parents and may append new ones at the tail. Any difference in root
// or policy fails with ErrCfgMismatch.
func (c *Cfg) Extend(other *Cfg) error {
	if other.root != c.root {
		return fmt.Errorf("%w: root %q vs %q", ErrCfgMismatch, c.root, other.root)
	}
	if !reflect.DeepEqual(c.policy.Map(), other.policy.Map()) {
		return fmt.Errorf("%w: policies differ", ErrCfgMismatch)
	}
	return c.extendParents(other.Parents())
}

// extendParents accepts a full parents list (absolute) that matches the
// existing list with optional new entries at the end.
func (c *Cfg) extendParents(newParents []string) error {
	normalized := make([]string, 0, len(newParents))
	for _, p := range newParents {
		normalized = append(normalized, fsutil.RelativePath(c.root, p))
	}

	if slices.Equal(c.parents, normalized) {
		return nil
	}
	if len(normalized) < len(c.parents) {
		return fmt.Errorf("%w: %v does not extend %v", ErrParentsMismatch, newParents, c.Parents())
	}
	for i, p := range c.parents {
		if normalized[i] != p {
			return fmt.Errorf("%w: %v does not extend %v", ErrParentsMismatch, newParents, c.Parents())
		}
	}
	c.parents = normalized
	c.dirty = true
	return nil
}
