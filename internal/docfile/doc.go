// Package docfile implements config.Loader for document formats: JSON, JSON
// with comments and trailing commas (.json, .jsonc), and YAML (.yaml, .yml).
package docfile
