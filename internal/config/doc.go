// Package config defines the format-agnostic configuration model for a
// shelf: which repositories it reads and writes, and which dataset type
// aliases it resolves. The Loader interface is implemented per format;
// the HCL implementation lives in the hclcfg package.
package config
