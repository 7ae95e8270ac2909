package formatter

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/datashelf/internal/policy"
)

// ErrNotRegistered indicates a lookup for a format name or type key that has
// no registered factory.
var ErrNotRegistered = errors.New("formatter: not registered")

// Registry maps format names to factories and persistable type keys to
// format names. It is safe for concurrent use; registration and lookup may
// happen from any goroutine.
type Registry struct {
	mu          sync.RWMutex
	byName      map[string]Factory
	nameForType map[string]string
}

// New creates an empty registry. Most applications build exactly one and
// pass it to everything that needs formatters.
func New() *Registry {
	return &Registry{
		byName:      make(map[string]Factory),
		nameForType: make(map[string]string),
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry, created lazily on first call
// and never torn down. It is safe to call from package init in any order.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New()
	})
	return defaultReg
}

// Register associates a factory with a format name and a type key. Both maps
// are written under one lock acquisition, so a name reachable through a type
// key always has a factory.
//
// Registering an already-used name or type key replaces the previous entry:
// the last registration wins. Repeating an identical registration is
// therefore idempotent.
func (r *Registry) Register(name, typeKey string, factory Factory) {
	if name == "" || factory == nil {
		panic("formatter: Register requires a name and a factory")
	}
	slog.Debug("Registering formatter.", "name", name, "typeKey", typeKey)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[name] = factory
	if typeKey != "" {
		r.nameForType[typeKey] = name
	}
}

// RegisterFor registers a factory under name, deriving the type key from the
// runtime type of prototype.
func (r *Registry) RegisterFor(name string, prototype any, factory Factory) {
	r.Register(name, TypeKeyOf(prototype), factory)
}

// Lookup builds a formatter for the given format name. When cfg contains a
// sub-policy keyed by name, exactly that sub-policy is passed to the
// factory; otherwise the factory receives nil. A miss returns an error
// wrapping ErrNotRegistered without invoking any factory.
func (r *Registry) Lookup(name string, cfg *policy.Policy) (Formatter, error) {
	r.mu.RLock()
	factory, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no formatter for name %q", ErrNotRegistered, name)
	}

	var sub *policy.Policy
	if cfg != nil && cfg.Exists(name) {
		sub = cfg.Sub(name)
	}
	return factory(sub)
}

// LookupType builds a formatter for the given type key, resolving the key to
// a format name first and then delegating to Lookup.
func (r *Registry) LookupType(typeKey string, cfg *policy.Policy) (Formatter, error) {
	r.mu.RLock()
	name, ok := r.nameForType[typeKey]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no formatter for type key %q", ErrNotRegistered, typeKey)
	}
	return r.Lookup(name, cfg)
}

// LookupFor builds a formatter for the runtime type of v.
func (r *Registry) LookupFor(v any, cfg *policy.Policy) (Formatter, error) {
	return r.LookupType(TypeKeyOf(v), cfg)
}

// Names returns all registered format names in sorted order. Diagnostics
// only; the order of registration is not preserved.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}
