// Package policy implements the hierarchical key/value configuration tree
// used throughout datashelf: repository policies, per-formatter options, and
// dataset definitions are all policies.
//
// Keys are dotted paths ("datasets.exposure.template") navigating nested
// string-keyed maps. Policies load from and dump to YAML, and two documents
// can be combined either destructively (Update, the other document wins) or
// additively (Merge, existing values win).
package policy
