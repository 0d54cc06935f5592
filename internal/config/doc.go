// Package config defines the format-agnostic settings model for a
// calculator run, along with the Loader interface for reading it from a
// settings file. The concrete HCL implementation lives in internal/hclcfg;
// command-line flags override whatever a loader produced.
package config
