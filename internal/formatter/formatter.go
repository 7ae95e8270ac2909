package formatter

import (
	"io"

	"github.com/vk/datashelf/internal/policy"
)

// Formatter serializes and deserializes one kind of persistable object.
// Implementations are opaque to the registry; it only constructs them and
// hands them to the caller.
type Formatter interface {
	// Read decodes one object from r.
	Read(r io.Reader) (any, error)
	// Write encodes obj onto w.
	Write(w io.Writer, obj any) error
}

// Factory builds a formatter instance, optionally parameterized by the
// policy slice registered under the formatter's name. cfg is nil when the
// caller supplied no configuration for this formatter.
type Factory func(cfg *policy.Policy) (Formatter, error)

// Module is the interface format packages implement to be compiled into an
// application. Register is called once during startup with the registry the
// application owns.
type Module interface {
	Register(r *Registry)
}
