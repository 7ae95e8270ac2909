// Package schema declares the HCL wire structures for shelf configuration
// files. Translation into the format-agnostic model happens in hclcfg.
package schema

import "github.com/hashicorp/hcl/v2"

// Repository represents a `repository` block from a shelf configuration file.
type Repository struct {
	Name       string   `hcl:"name,label"`
	Root       string   `hcl:"root"`
	Mode       string   `hcl:"mode,optional"`
	Tags       []string `hcl:"tags,optional"`
	PolicyPath string   `hcl:"policy,optional"`
	// PolicyInline is repository policy written directly in the block as an
	// HCL object. The raw expression is kept so the loader can evaluate it
	// against its own context.
	PolicyInline hcl.Expression `hcl:"policy_inline,optional"`
}

// Alias represents an `alias` block mapping a shorthand to a dataset type.
type Alias struct {
	Name        string `hcl:"name,label"`
	DatasetType string `hcl:"dataset_type"`
}

// Root represents the top-level structure of a shelf configuration file.
type Root struct {
	Repositories []*Repository `hcl:"repository,block"`
	Aliases      []*Alias      `hcl:"alias,block"`
	Body         hcl.Body      `hcl:",remain"`
}
