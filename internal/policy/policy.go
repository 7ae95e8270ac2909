package policy

import (
	"fmt"
	"sort"
	"strings"
)

// Policy is a tree of string-keyed values addressed by dotted paths.
// The zero value is not usable; construct with New, FromMap, or Load.
type Policy struct {
	data map[string]any
}

// New returns an empty policy.
func New() *Policy {
	return &Policy{data: make(map[string]any)}
}

// FromMap wraps an existing nested map. The map is not copied: mutations made
// through the policy are visible to holders of the map and vice versa.
func FromMap(m map[string]any) *Policy {
	if m == nil {
		m = make(map[string]any)
	}
	return &Policy{data: m}
}

// Map exposes the underlying tree. Mostly useful for serialization and tests.
func (p *Policy) Map() map[string]any {
	return p.data
}

// lookup walks a dotted path and returns the node it lands on.
func (p *Policy) lookup(name string) (any, bool) {
	var cur any = p.data
	for _, part := range strings.Split(name, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Exists reports whether the dotted path names a value or a subtree.
func (p *Policy) Exists(name string) bool {
	_, ok := p.lookup(name)
	return ok
}

// Get returns the raw value at the dotted path.
func (p *Policy) Get(name string) (any, bool) {
	return p.lookup(name)
}

// Set stores a value at the dotted path, creating intermediate maps as
// needed. A non-map value sitting on the path is replaced by a map.
func (p *Policy) Set(name string, value any) {
	parts := strings.Split(name, ".")
	m := p.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Remove deletes the value or subtree at the dotted path. Removing a missing
// path is a no-op.
func (p *Policy) Remove(name string) {
	parts := strings.Split(name, ".")
	m := p.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	delete(m, parts[len(parts)-1])
}

// Sub returns the subtree at the dotted path as a policy, or nil when the
// path is absent or names a scalar. The returned policy is a live view, not
// a copy.
func (p *Policy) Sub(name string) *Policy {
	v, ok := p.lookup(name)
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &Policy{data: m}
}

// String returns the string at the dotted path, or def when the path is
// absent or not a string.
func (p *Policy) String(name, def string) string {
	if v, ok := p.lookup(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Int returns the integer at the dotted path. YAML and JSON decoders disagree
// about number types, so int, int64, uint64 and float64 are all accepted.
func (p *Policy) Int(name string, def int) int {
	v, ok := p.lookup(name)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// Float returns the float at the dotted path, accepting integer values too.
func (p *Policy) Float(name string, def float64) float64 {
	v, ok := p.lookup(name)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// Bool returns the boolean at the dotted path, or def.
func (p *Policy) Bool(name string, def bool) bool {
	if v, ok := p.lookup(name); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// StringSlice returns the list of strings at the dotted path. Lists decoded
// from YAML arrive as []any and are converted element-wise.
func (p *Policy) StringSlice(name string) []string {
	v, ok := p.lookup(name)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// Update recursively folds other into p. Where both sides hold a map the
// maps are combined; everywhere else the other policy's value wins.
func (p *Policy) Update(other *Policy) {
	if other == nil {
		return
	}
	updateTree(p.data, other.data)
}

func updateTree(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				updateTree(dm, sm)
				continue
			}
			fresh := make(map[string]any)
			updateTree(fresh, sm)
			dst[k] = fresh
			continue
		}
		dst[k] = v
	}
}

// Merge recursively folds other into p without disturbing existing values:
// only keys absent from p are taken. The other policy is left unchanged.
func (p *Policy) Merge(other *Policy) {
	if other == nil {
		return
	}
	mergeTree(p.data, other.data)
}

func mergeTree(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				mergeTree(dm, sm)
				continue
			}
			if _, exists := dst[k]; exists {
				continue
			}
			fresh := make(map[string]any)
			mergeTree(fresh, sm)
			dst[k] = fresh
			continue
		}
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

// Names returns the dotted names of every node in the tree, branches
// included, in sorted order.
func (p *Policy) Names() []string {
	var names []string
	collectNames("", p.data, &names)
	sort.Strings(names)
	return names
}

func collectNames(prefix string, m map[string]any, out *[]string) {
	for k, v := range m {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		*out = append(*out, name)
		if sub, ok := v.(map[string]any); ok {
			collectNames(name, sub, out)
		}
	}
}
