package hclcfg

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/datashelf/internal/config"
	"github.com/vk/datashelf/internal/fsutil"
	"github.com/vk/datashelf/internal/policy"
	"github.com/vk/datashelf/internal/repo"
	"github.com/vk/datashelf/internal/schema"
)

// translateRepository converts the HCL-specific repository schema into the
// agnostic model. Relative roots and policy paths are resolved against the
// directory of the file that declared them; an inline policy expression is
// evaluated and converted into a policy tree.
func translateRepository(s *schema.Repository, baseDir string, evalCtx *hcl.EvalContext) (*config.Repository, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("repository block needs a name label")
	}
	if s.Root == "" {
		return nil, fmt.Errorf("repository %q: root must not be empty", s.Name)
	}
	if _, err := repo.ParseMode(s.Mode); err != nil {
		return nil, fmt.Errorf("repository %q: %w", s.Name, err)
	}

	root := s.Root
	if !strings.Contains(root, "://") {
		root = fsutil.AbsolutePath(baseDir, root)
	}

	policyPath := s.PolicyPath
	if policyPath != "" {
		policyPath = fsutil.AbsolutePath(baseDir, policyPath)
	}

	pol, err := translateInlinePolicy(s, evalCtx)
	if err != nil {
		return nil, err
	}

	return &config.Repository{
		Name:       s.Name,
		Root:       root,
		Mode:       s.Mode,
		Tags:       s.Tags,
		PolicyPath: policyPath,
		Policy:     pol,
	}, nil
}

// translateInlinePolicy evaluates a repository's policy_inline expression,
// if present, into a policy tree.
func translateInlinePolicy(s *schema.Repository, evalCtx *hcl.EvalContext) (*policy.Policy, error) {
	if s.PolicyInline == nil {
		return nil, nil
	}
	v, diags := s.PolicyInline.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("repository %q: evaluating policy_inline: %w", s.Name, diags)
	}
	if v.IsNull() {
		return nil, nil
	}
	converted, err := ctyToGo(v)
	if err != nil {
		return nil, fmt.Errorf("repository %q: policy_inline: %w", s.Name, err)
	}
	tree, ok := converted.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("repository %q: policy_inline must be an object", s.Name)
	}
	return policy.FromMap(tree), nil
}

// ctyToGo converts an evaluated HCL value into the plain Go shapes policy
// trees are made of. Whole numbers become ints, everything else numeric a
// float64.
func ctyToGo(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.Number:
		if n, acc := v.AsBigFloat().Int64(); acc == big.Exact {
			return int(n), nil
		}
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			converted, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out[key.AsString()] = converted
		}
		return out, nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			converted, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", t.FriendlyName())
}

// translateAlias converts an alias block, normalizing the leading "@" so
// both `alias "raw"` and `alias "@raw"` declare the same shorthand.
func translateAlias(s *schema.Alias) (string, string, error) {
	name := strings.TrimPrefix(s.Name, "@")
	if name == "" {
		return "", "", fmt.Errorf("alias block needs a name label")
	}
	if s.DatasetType == "" {
		return "", "", fmt.Errorf("alias %q: dataset_type must not be empty", name)
	}
	return name, s.DatasetType, nil
}
