// Package repo models on-disk dataset repositories.
//
// Every repository carries a small persisted configuration (Cfg) at a
// well-known location inside its root: the repository's parents and its
// policy. The policy's "datasets" section declares, per dataset type, the
// path template that places instances and the format they are serialized
// with; Repository binds that declaration to an open storage backend and
// resolves (dataset type, data ID) pairs to concrete locations.
package repo
