package hclcfg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/datashelf/internal/config"
	"github.com/vk/datashelf/internal/ctxlog"
	"github.com/vk/datashelf/internal/fsutil"
	"github.com/vk/datashelf/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file reachable from the given paths and merges the
// discovered blocks into one model. Repository names must be unique across
// all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{Aliases: make(map[string]string)}
	evalCtx := evalContext()
	parser := hclparse.NewParser()
	seenRepos := make(map[string]string)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root schema.Root
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, r := range root.Repositories {
			repo, err := translateRepository(r, filepath.Dir(file), evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			if prev, ok := seenRepos[repo.Name]; ok {
				return nil, fmt.Errorf("repository %q declared in both %s and %s", repo.Name, prev, file)
			}
			seenRepos[repo.Name] = file
			model.Repositories = append(model.Repositories, repo)
		}
		for _, a := range root.Aliases {
			alias, target, err := translateAlias(a)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Aliases[alias] = target
		}
	}

	logger.Debug("HCL loading complete.", "repositories", len(model.Repositories), "aliases", len(model.Aliases))
	return model, nil
}

// findAllHCLFiles expands the given paths (files or directories) into a flat,
// de-duplicated list of .hcl files.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	add := func(p string) {
		if _, ok := seen[p]; !ok {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
		} else if filepath.Ext(path) == ".hcl" {
			add(path)
		}
	}
	return allFiles, nil
}

// evalContext builds the expression evaluation context for configuration
// files. Environment variables are exposed as the `env` object.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		vars[key] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}
