package config

import "github.com/vk/datashelf/internal/policy"

// Model is the unified representation of a shelf configuration, no matter
// which format it was loaded from.
type Model struct {
	Repositories []*Repository
	Aliases      map[string]string
}

// Repository describes one repository a shelf should attach.
type Repository struct {
	Name string
	// Root is the repository location, either a bare path or a URI with a
	// storage scheme such as file:// or https://.
	Root string
	// Mode is the access mode string: "r", "w", or "rw".
	Mode string
	// Tags label the repository for tag-filtered reads.
	Tags []string
	// PolicyPath optionally points at a YAML policy file whose contents
	// override the repository's stored policy.
	PolicyPath string
	// Policy optionally carries policy declared inline in the configuration
	// file. It is folded over the PolicyPath contents, inline values
	// winning.
	Policy *policy.Policy
}

// Inputs returns the repositories opened for reading.
func (m *Model) Inputs() []*Repository {
	return m.selectMode(func(mode string) bool { return mode != "w" })
}

// Outputs returns the repositories opened for writing.
func (m *Model) Outputs() []*Repository {
	return m.selectMode(func(mode string) bool { return mode == "w" || mode == "rw" })
}

func (m *Model) selectMode(keep func(string) bool) []*Repository {
	var out []*Repository
	for _, r := range m.Repositories {
		if keep(r.Mode) {
			out = append(out, r)
		}
	}
	return out
}
