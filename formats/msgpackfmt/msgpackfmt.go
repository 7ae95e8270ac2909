// Package msgpackfmt provides the MessagePack formatter, the compact binary
// encoding for structured documents.
package msgpackfmt

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/datashelf/internal/formatter"
	"github.com/vk/datashelf/internal/policy"
)

// Name is the format name msgpackfmt registers under.
const Name = "msgpack"

// Document is the persistable type msgpack datasets decode to.
type Document map[string]any

// Formatter encodes and decodes MessagePack documents. The policy option
// "sort_map_keys" makes encoding deterministic at some cost.
type Formatter struct {
	sortKeys bool
}

// New builds a MessagePack formatter from its policy slice.
func New(cfg *policy.Policy) (formatter.Formatter, error) {
	f := &Formatter{}
	if cfg != nil {
		f.sortKeys = cfg.Bool("sort_map_keys", false)
	}
	return f, nil
}

// Read decodes one MessagePack document.
func (f *Formatter) Read(r io.Reader) (any, error) {
	dec := msgpack.NewDecoder(r)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Write encodes obj as one MessagePack document.
func (f *Formatter) Write(w io.Writer, obj any) error {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(f.sortKeys)
	return enc.Encode(obj)
}

// Module implements formatter.Module for this package.
type Module struct{}

// Register registers the MessagePack formatter for Document persistables.
func (m *Module) Register(r *formatter.Registry) {
	r.RegisterFor(Name, Document{}, New)
}
