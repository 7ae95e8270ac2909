// Package jsonfmt provides the JSON document formatter.
package jsonfmt

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/vk/datashelf/internal/formatter"
	"github.com/vk/datashelf/internal/policy"
)

// Name is the format name jsonfmt registers under.
const Name = "json"

// Formatter encodes and decodes JSON documents. The policy options "indent"
// and "prefix" control pretty-printing on write.
type Formatter struct {
	indent string
	prefix string
}

// New builds a JSON formatter from its policy slice.
func New(cfg *policy.Policy) (formatter.Formatter, error) {
	f := &Formatter{}
	if cfg != nil {
		f.indent = cfg.String("indent", "")
		f.prefix = cfg.String("prefix", "")
	}
	return f, nil
}

// Read decodes one JSON document.
func (f *Formatter) Read(r io.Reader) (any, error) {
	var v any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Write encodes obj as one JSON document.
func (f *Formatter) Write(w io.Writer, obj any) error {
	enc := json.NewEncoder(w)
	if f.indent != "" || f.prefix != "" {
		enc.SetIndent(f.prefix, f.indent)
	}
	return enc.Encode(obj)
}

// Module implements formatter.Module for this package.
type Module struct{}

// Register registers the JSON formatter for generic map documents.
func (m *Module) Register(r *formatter.Registry) {
	r.RegisterFor(Name, map[string]any{}, New)
}
