package policy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load decodes a YAML document into a policy. An empty document yields an
// empty policy.
func Load(r io.Reader) (*Policy, error) {
	var data map[string]any
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&data); err != nil {
		if err == io.EOF {
			return New(), nil
		}
		return nil, fmt.Errorf("policy: decoding YAML: %w", err)
	}
	return FromMap(data), nil
}

// LoadFile reads a policy from a YAML file.
func LoadFile(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("policy: opening %s: %w", path, err)
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("policy: reading %s: %w", path, err)
	}
	return p, nil
}

// Dump writes the policy as YAML.
func (p *Policy) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p.data); err != nil {
		return fmt.Errorf("policy: encoding YAML: %w", err)
	}
	return enc.Close()
}

// DumpFile writes the policy to a YAML file, replacing any existing content.
func (p *Policy) DumpFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("policy: creating %s: %w", path, err)
	}
	if err := p.Dump(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
