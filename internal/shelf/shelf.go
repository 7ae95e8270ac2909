// Package shelf implements the dataset access layer. A shelf fronts a set
// of input and output repositories: reads search the inputs in order and
// return the first hit, writes go to every output.
package shelf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vk/datashelf/internal/config"
	"github.com/vk/datashelf/internal/ctxlog"
	"github.com/vk/datashelf/internal/formatter"
	"github.com/vk/datashelf/internal/policy"
	"github.com/vk/datashelf/internal/repo"
)

var (
	// ErrNoLocations indicates that no input repository holds the requested
	// dataset instance.
	ErrNoLocations = errors.New("shelf: no locations found")
	// ErrNoOutputs indicates a put with no writable repository attached.
	ErrNoOutputs = errors.New("shelf: no output repositories")
	// ErrBadAlias indicates an alias definition that is invalid or would be
	// ambiguous against an existing one.
	ErrBadAlias = errors.New("shelf: bad alias")
)

// Shelf coordinates dataset reads and writes across repositories, using the
// formatter registry to serialize persistables.
type Shelf struct {
	registry *formatter.Registry
	inputs   []*repo.Repository
	outputs  []*repo.Repository
	aliases  map[string]string
}

// Open attaches every repository the model names. Readable repositories
// become inputs, writable ones outputs; a repository opened "rw" serves as
// both. Parents recorded in a repository's cfg are chained in as additional
// read-only inputs, nearest first.
func Open(ctx context.Context, registry *formatter.Registry, model *config.Model) (*Shelf, error) {
	s := &Shelf{
		registry: registry,
		aliases:  make(map[string]string),
	}

	opened := make(map[string]*repo.Repository, len(model.Repositories))
	seen := make(map[string]struct{}, len(model.Repositories))
	for _, mc := range model.Repositories {
		mode, err := repo.ParseMode(mc.Mode)
		if err != nil {
			return nil, err
		}
		pol, err := repositoryPolicy(mc)
		if err != nil {
			return nil, err
		}

		r, err := repo.Open(ctx, repo.Args{Root: mc.Root, Mode: mode, Tags: mc.Tags, Policy: pol})
		if err != nil {
			return nil, fmt.Errorf("shelf: repository %q: %w", mc.Name, err)
		}
		opened[mc.Name] = r
		seen[mc.Root] = struct{}{}
	}

	for _, mc := range model.Inputs() {
		r := opened[mc.Name]
		s.inputs = append(s.inputs, r)
		if err := s.chainParents(ctx, r, seen); err != nil {
			return nil, err
		}
	}
	for _, mc := range model.Outputs() {
		s.outputs = append(s.outputs, opened[mc.Name])
	}

	for alias, target := range model.Aliases {
		if err := s.DefineAlias(alias, target); err != nil {
			return nil, err
		}
	}

	ctxlog.FromContext(ctx).Debug("Opened shelf.",
		"inputs", len(s.inputs), "outputs", len(s.outputs), "aliases", len(s.aliases))
	return s, nil
}

// repositoryPolicy builds the policy overlay for one configured repository:
// the file named by PolicyPath, with any inline policy folded over it.
func repositoryPolicy(mc *config.Repository) (*policy.Policy, error) {
	var pol *policy.Policy
	if mc.PolicyPath != "" {
		loaded, err := policy.LoadFile(mc.PolicyPath)
		if err != nil {
			return nil, fmt.Errorf("shelf: repository %q: %w", mc.Name, err)
		}
		pol = loaded
	}
	if mc.Policy != nil {
		if pol == nil {
			pol = policy.New()
		}
		pol.Update(mc.Policy)
	}
	return pol, nil
}

// chainParents opens the parents recorded in r's cfg as read-only inputs,
// breadth first, skipping roots that are already attached. Chained parents
// inherit the tags of the repository that declared them, so tag-filtered
// views keep searching the full chain.
func (s *Shelf) chainParents(ctx context.Context, r *repo.Repository, seen map[string]struct{}) error {
	tags := r.Tags()
	queue := r.Cfg().Parents()
	for len(queue) > 0 {
		root := queue[0]
		queue = queue[1:]
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}

		parent, err := repo.Open(ctx, repo.Args{Root: root, Mode: repo.ModeRead, Tags: tags})
		if err != nil {
			return fmt.Errorf("shelf: parent %q: %w", root, err)
		}
		s.inputs = append(s.inputs, parent)
		queue = append(queue, parent.Cfg().Parents()...)
	}
	return nil
}

// WithTag narrows the shelf to inputs carrying tag: reads, existence checks
// and scans through the view only consult matching repositories, while
// writes still reach every output. An empty tag returns the shelf unchanged.
func (s *Shelf) WithTag(tag string) *Shelf {
	if tag == "" {
		return s
	}
	view := &Shelf{
		registry: s.registry,
		outputs:  s.outputs,
		aliases:  s.aliases,
	}
	for _, r := range s.inputs {
		if r.HasTag(tag) {
			view.inputs = append(view.inputs, r)
		}
	}
	return view
}

// DefineAlias maps "@alias" to a dataset type. No alias may be a prefix of
// another: once "@cal" exists, neither "@c" nor "@calexp" can be defined,
// since the "@" rewrite could match the wrong alias. Non-prefix overlap such
// as "@cal" and "@decal" is fine.
func (s *Shelf) DefineAlias(alias, datasetType string) error {
	alias = strings.TrimPrefix(alias, "@")
	if alias == "" {
		return fmt.Errorf("%w: empty alias", ErrBadAlias)
	}
	if strings.Contains(datasetType, "@") {
		return fmt.Errorf("%w: target %q contains @", ErrBadAlias, datasetType)
	}
	for existing := range s.aliases {
		if strings.HasPrefix(existing, alias) || strings.HasPrefix(alias, existing) {
			return fmt.Errorf("%w: %q overlaps existing alias %q", ErrBadAlias, alias, existing)
		}
	}
	s.aliases[alias] = datasetType
	return nil
}

// ResolveType rewrites "@alias" references inside a dataset type name. A
// name with no "@" passes through untouched.
func (s *Shelf) ResolveType(datasetType string) (string, error) {
	if !strings.Contains(datasetType, "@") {
		return datasetType, nil
	}
	for alias, target := range s.aliases {
		datasetType = strings.ReplaceAll(datasetType, "@"+alias, target)
	}
	if strings.Contains(datasetType, "@") {
		return "", fmt.Errorf("%w: unresolved alias in %q", ErrBadAlias, datasetType)
	}
	return datasetType, nil
}

// Get reads a dataset instance, searching the inputs in order and decoding
// the first location that exists. A location whose definition names no
// format is read with the raw formatter.
func (s *Shelf) Get(ctx context.Context, datasetType string, dataID map[string]any) (any, error) {
	datasetType, err := s.ResolveType(datasetType)
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)

	for _, r := range s.inputs {
		loc, err := r.Map(datasetType, dataID)
		if errors.Is(err, repo.ErrUnknownDataset) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !r.Exists(loc) {
			continue
		}

		f, err := s.readFormatter(r, loc)
		if err != nil {
			return nil, err
		}
		rc, err := r.Read(loc)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		logger.Debug("Reading dataset.", "type", datasetType, "path", loc.Path, "repo", r.Cfg().Root())
		return f.Read(rc)
	}
	return nil, fmt.Errorf("%w: %q %v", ErrNoLocations, datasetType, dataID)
}

// Put writes a dataset instance to every output repository that declares
// the type. When the dataset definition names no format, a formatter is
// chosen by the persistable's type.
func (s *Shelf) Put(ctx context.Context, datasetType string, dataID map[string]any, obj any) error {
	datasetType, err := s.ResolveType(datasetType)
	if err != nil {
		return err
	}
	if len(s.outputs) == 0 {
		return ErrNoOutputs
	}
	logger := ctxlog.FromContext(ctx)

	var wrote bool
	for _, r := range s.outputs {
		loc, err := r.Map(datasetType, dataID)
		if errors.Is(err, repo.ErrUnknownDataset) {
			continue
		}
		if err != nil {
			return err
		}

		f, err := s.writeFormatter(r, loc, obj)
		if err != nil {
			return err
		}
		err = r.Write(loc, func(w io.Writer) error {
			return f.Write(w, obj)
		})
		if err != nil {
			return err
		}
		logger.Debug("Wrote dataset.", "type", datasetType, "path", loc.Path, "repo", r.Cfg().Root())
		wrote = true
	}
	if !wrote {
		return fmt.Errorf("%w: no output declares %q", repo.ErrUnknownDataset, datasetType)
	}
	return nil
}

// PutFile writes serialized dataset content, such as a file read from disk,
// to every output repository that declares the type. Each output decodes the
// bytes with its own formatter before storing, so the content is validated
// and re-encoded with that repository's options.
func (s *Shelf) PutFile(ctx context.Context, datasetType string, dataID map[string]any, data []byte) error {
	datasetType, err := s.ResolveType(datasetType)
	if err != nil {
		return err
	}
	if len(s.outputs) == 0 {
		return ErrNoOutputs
	}

	var wrote bool
	for _, r := range s.outputs {
		loc, err := r.Map(datasetType, dataID)
		if errors.Is(err, repo.ErrUnknownDataset) {
			continue
		}
		if err != nil {
			return err
		}

		f, err := s.readFormatter(r, loc)
		if err != nil {
			return err
		}
		obj, err := f.Read(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("shelf: decoding %q content: %w", datasetType, err)
		}
		err = r.Write(loc, func(w io.Writer) error {
			return f.Write(w, obj)
		})
		if err != nil {
			return err
		}
		ctxlog.FromContext(ctx).Debug("Wrote dataset from serialized content.",
			"type", datasetType, "path", loc.Path, "repo", r.Cfg().Root())
		wrote = true
	}
	if !wrote {
		return fmt.Errorf("%w: no output declares %q", repo.ErrUnknownDataset, datasetType)
	}
	return nil
}

// Exists reports whether any input holds the dataset instance.
func (s *Shelf) Exists(datasetType string, dataID map[string]any) (bool, error) {
	datasetType, err := s.ResolveType(datasetType)
	if err != nil {
		return false, err
	}
	var known bool
	for _, r := range s.inputs {
		loc, err := r.Map(datasetType, dataID)
		if errors.Is(err, repo.ErrUnknownDataset) {
			continue
		}
		if err != nil {
			return false, err
		}
		known = true
		if r.Exists(loc) {
			return true, nil
		}
	}
	if !known {
		return false, fmt.Errorf("%w: %q", repo.ErrUnknownDataset, datasetType)
	}
	return false, nil
}

// Scan enumerates existing instances of a dataset type across all inputs.
// Paths found in nearer repositories shadow the same path further down the
// chain.
func (s *Shelf) Scan(ctx context.Context, datasetType string) (map[string]map[string]any, error) {
	datasetType, err := s.ResolveType(datasetType)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]map[string]any)
	var known bool
	for _, r := range s.inputs {
		found, err := r.Scan(ctx, datasetType)
		if errors.Is(err, repo.ErrUnknownDataset) {
			continue
		}
		if err != nil {
			return nil, err
		}
		known = true
		for path, dataID := range found {
			if _, ok := merged[path]; !ok {
				merged[path] = dataID
			}
		}
	}
	if !known {
		return nil, fmt.Errorf("%w: %q", repo.ErrUnknownDataset, datasetType)
	}
	return merged, nil
}

// Types returns the union of dataset types declared across all attached
// repositories, sorted.
func (s *Shelf) Types() []string {
	set := make(map[string]struct{})
	for _, r := range s.inputs {
		for _, t := range r.Types() {
			set[t] = struct{}{}
		}
	}
	for _, r := range s.outputs {
		for _, t := range r.Types() {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// readFormatter picks the formatter for reading at loc, defaulting to the
// raw formatter when the dataset definition names none.
func (s *Shelf) readFormatter(r *repo.Repository, loc *repo.Location) (formatter.Formatter, error) {
	name := loc.Format
	if name == "" {
		name = "raw"
	}
	return s.registry.Lookup(name, r.FormatterConfig())
}

// writeFormatter picks the formatter for writing obj at loc. With no format
// in the definition, the choice falls back to the persistable's type.
func (s *Shelf) writeFormatter(r *repo.Repository, loc *repo.Location, obj any) (formatter.Formatter, error) {
	if loc.Format != "" {
		return s.registry.Lookup(loc.Format, r.FormatterConfig())
	}
	return s.registry.LookupFor(obj, r.FormatterConfig())
}
