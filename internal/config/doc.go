// Package config defines the format-agnostic run configuration of the
// generator, along with the Loader interface implemented by the concrete
// format packages.
//
// Every loader produces a generic document (maps, slices, scalars) and hands
// it to Decode, so JSON, YAML and HCL files share one set of keys, defaults
// and validation rules. The Model is the single source of truth for the
// engine; concrete loaders live in the docfile and hcl packages.
package config
