// Package rawfmt provides the pass-through formatter: datasets whose bytes
// are stored exactly as given.
package rawfmt

import (
	"fmt"
	"io"

	"github.com/vk/datashelf/internal/formatter"
	"github.com/vk/datashelf/internal/policy"
)

// Name is the format name rawfmt registers under.
const Name = "raw"

// Formatter copies bytes verbatim in both directions.
type Formatter struct{}

// New builds the raw formatter. It takes no policy options.
func New(*policy.Policy) (formatter.Formatter, error) {
	return &Formatter{}, nil
}

// Read returns the remaining bytes of r as a []byte.
func (f *Formatter) Read(r io.Reader) (any, error) {
	return io.ReadAll(r)
}

// Write accepts []byte or string; anything else is an error.
func (f *Formatter) Write(w io.Writer, obj any) error {
	switch data := obj.(type) {
	case []byte:
		_, err := w.Write(data)
		return err
	case string:
		_, err := io.WriteString(w, data)
		return err
	}
	return fmt.Errorf("rawfmt: cannot write %T, want []byte or string", obj)
}

// Module implements formatter.Module for this package.
type Module struct{}

// Register registers the raw formatter for byte-slice persistables.
func (m *Module) Register(r *formatter.Registry) {
	r.RegisterFor(Name, []byte(nil), New)
}
