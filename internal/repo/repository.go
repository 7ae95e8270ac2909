package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vk/datashelf/internal/ctxlog"
	"github.com/vk/datashelf/internal/policy"
	"github.com/vk/datashelf/internal/scanner"
	"github.com/vk/datashelf/internal/storage"
)

var (
	// ErrUnknownDataset indicates a dataset type the repository policy does
	// not declare.
	ErrUnknownDataset = errors.New("repo: unknown dataset type")
	// ErrNotWritable indicates a write to a repository opened read-only.
	ErrNotWritable = errors.New("repo: not writable")
)

// Location is a mapped dataset instance: the storage-relative path it lives
// at and the format it is serialized with.
type Location struct {
	DatasetType string
	DataID      map[string]any
	Path        string
	Format      string
}

// datasetDef is one entry of the policy's "datasets" section.
type datasetDef struct {
	template *scanner.Template
	format   string
}

// Repository binds a cfg, an open storage backend, and the dataset
// definitions declared by the repository policy.
type Repository struct {
	cfg      *Cfg
	store    storage.Storage
	mode     Mode
	tags     map[string]struct{}
	datasets map[string]*datasetDef
}

// Open opens (or, for writable modes, creates) the repository described by
// args. An existing cfg inside the root is loaded and args.Policy is folded
// over its policy; a writable repository with no cfg gets one written.
func Open(ctx context.Context, args Args) (*Repository, error) {
	logger := ctxlog.FromContext(ctx)

	store, err := storage.Open(args.Root, args.Mode.Writable())
	if err != nil {
		return nil, err
	}

	var cfg *Cfg
	if store.Exists(CfgFileName) {
		cfg, err = LoadCfg(store)
		if err != nil {
			return nil, err
		}
		cfg.Policy().Update(args.Policy)
	} else {
		cfg = NewCfg(args.Root, args.Policy)
		if args.Mode.Writable() {
			if err := cfg.Save(store); err != nil {
				return nil, err
			}
			logger.Debug("Initialized new repository.", "root", args.Root)
		}
	}

	r := &Repository{
		cfg:      cfg,
		store:    store,
		mode:     args.Mode,
		tags:     make(map[string]struct{}, len(args.Tags)),
		datasets: make(map[string]*datasetDef),
	}
	for _, tag := range args.Tags {
		r.tags[tag] = struct{}{}
	}
	if err := r.loadDatasets(); err != nil {
		return nil, err
	}

	logger.Debug("Opened repository.", "root", args.Root, "mode", args.Mode.String(),
		"datasets", len(r.datasets))
	return r, nil
}

// loadDatasets compiles the policy's datasets section. Each entry needs a
// template; the format may be empty, leaving format selection to the caller.
func (r *Repository) loadDatasets() error {
	defs := r.cfg.Policy().Sub("datasets")
	if defs == nil {
		return nil
	}
	for _, name := range topLevel(defs.Names()) {
		tmplStr := defs.String(name+".template", "")
		if tmplStr == "" {
			return fmt.Errorf("repo: dataset %q in %s has no template", name, r.cfg.Root())
		}
		tmpl, err := scanner.Parse(tmplStr)
		if err != nil {
			return fmt.Errorf("repo: dataset %q: %w", name, err)
		}
		r.datasets[name] = &datasetDef{
			template: tmpl,
			format:   defs.String(name+".format", ""),
		}
	}
	return nil
}

// topLevel filters a dotted name list down to names without dots.
func topLevel(names []string) []string {
	var out []string
	for _, n := range names {
		if !strings.Contains(n, ".") {
			out = append(out, n)
		}
	}
	return out
}

// Cfg returns the repository's configuration.
func (r *Repository) Cfg() *Cfg {
	return r.cfg
}

// Storage returns the repository's storage backend.
func (r *Repository) Storage() storage.Storage {
	return r.store
}

// Mode returns the access mode the repository was opened with.
func (r *Repository) Mode() Mode {
	return r.mode
}

// HasTag reports whether the repository carries the tag. An empty tag
// matches every repository.
func (r *Repository) HasTag(tag string) bool {
	if tag == "" {
		return true
	}
	_, ok := r.tags[tag]
	return ok
}

// Tags returns the tags the repository was opened with, sorted.
func (r *Repository) Tags() []string {
	out := make([]string, 0, len(r.tags))
	for tag := range r.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Types returns the dataset types the repository declares, sorted.
func (r *Repository) Types() []string {
	out := make([]string, 0, len(r.datasets))
	for name := range r.datasets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FormatterConfig returns the policy slice holding per-formatter options,
// or nil when the repository policy has none.
func (r *Repository) FormatterConfig() *policy.Policy {
	return r.cfg.Policy().Sub("formatters")
}

// Map resolves a dataset type and data ID to a concrete location. The
// dataset type must be declared by the repository policy.
func (r *Repository) Map(datasetType string, dataID map[string]any) (*Location, error) {
	def, ok := r.datasets[datasetType]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownDataset, datasetType, r.cfg.Root())
	}
	path, err := def.template.Render(dataID)
	if err != nil {
		return nil, err
	}
	return &Location{
		DatasetType: datasetType,
		DataID:      dataID,
		Path:        path,
		Format:      def.format,
	}, nil
}

// Exists reports whether the mapped location holds data.
func (r *Repository) Exists(loc *Location) bool {
	return r.store.Exists(loc.Path)
}

// Read opens the mapped location for reading.
func (r *Repository) Read(loc *Location) (io.ReadCloser, error) {
	return r.store.Read(loc.Path)
}

// Write stores the bytes produced by put at the mapped location.
func (r *Repository) Write(loc *Location, put func(w io.Writer) error) error {
	if !r.mode.Writable() {
		return fmt.Errorf("%w: %s", ErrNotWritable, r.cfg.Root())
	}
	return r.store.Write(loc.Path, put)
}

// Scan enumerates existing instances of a dataset type, returning
// storage-relative paths mapped to their data IDs. Only posix-backed
// repositories can scan; others return an empty result.
func (r *Repository) Scan(ctx context.Context, datasetType string) (map[string]map[string]any, error) {
	def, ok := r.datasets[datasetType]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownDataset, datasetType, r.cfg.Root())
	}
	posix, ok := r.store.(*storage.Posix)
	if !ok {
		ctxlog.FromContext(ctx).Debug("Storage does not support scanning.", "uri", r.store.URI())
		return map[string]map[string]any{}, nil
	}
	sc, err := scanner.New(def.template.String())
	if err != nil {
		return nil, err
	}
	return sc.Scan(ctx, posix.Root())
}
