// Package hclcfg provides the concrete HCL implementation of the
// config.Loader interface. It parses .hcl shelf configuration files,
// evaluates attribute expressions with environment variables exposed as
// `env`, and translates the result into the format-agnostic model.
package hclcfg
