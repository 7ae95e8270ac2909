// Package formatter provides the central registry mapping dataset format
// names and persistable type keys to formatter factories.
//
// The Registry holds two mappings: name -> factory, and type key -> name.
// Callers can therefore resolve a formatter either by the human-readable
// format name or by the runtime type of the object being persisted. A
// registry is constructed explicitly and passed to its consumers; Default
// exists for format modules that register from package init and for hosts
// that want one process-wide table.
//
// During application startup the registry is populated by Module
// implementations (see the formats tree), after which lookups construct
// formatter instances on demand, handing each factory the slice of policy
// keyed by its own format name.
package formatter
