// Package hcl provides the HCL implementation of config.Loader.
//
// A run configuration may be a single .hcl file or a directory of them; the
// top-level attributes of every file are merged into one document (a key
// defined twice is an error), converted to JSON-compatible values through
// cty, and decoded by the config package like any other format.
package hcl
