// Package yamlfmt provides the YAML formatter. YAML datasets decode to
// policies, so configuration-like documents keep their dotted-path access.
package yamlfmt

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/vk/datashelf/internal/formatter"
	"github.com/vk/datashelf/internal/policy"
)

// Name is the format name yamlfmt registers under.
const Name = "yaml"

// Formatter reads YAML documents into policies and writes policies (or
// plain maps) back out. The policy option "indent" sets the emitted
// indentation width.
type Formatter struct {
	indent int
}

// New builds a YAML formatter from its policy slice.
func New(cfg *policy.Policy) (formatter.Formatter, error) {
	f := &Formatter{indent: 2}
	if cfg != nil {
		f.indent = cfg.Int("indent", 2)
	}
	return f, nil
}

// Read decodes one YAML document into a *policy.Policy.
func (f *Formatter) Read(r io.Reader) (any, error) {
	return policy.Load(r)
}

// Write encodes a *policy.Policy or a map as one YAML document.
func (f *Formatter) Write(w io.Writer, obj any) error {
	var doc any
	switch v := obj.(type) {
	case *policy.Policy:
		doc = v.Map()
	case map[string]any:
		doc = v
	default:
		return fmt.Errorf("yamlfmt: cannot write %T, want *policy.Policy or map", obj)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(f.indent)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Module implements formatter.Module for this package.
type Module struct{}

// Register registers the YAML formatter for policy persistables.
func (m *Module) Register(r *formatter.Registry) {
	r.RegisterFor(Name, &policy.Policy{}, New)
}
