package output

import (
	"bytes"
	"encoding/json"
)

// Dir is an output subdirectory.
type Dir string

const (
	Configs Dir = "configs"
	Errors  Dir = "errors"
	Root    Dir = ""
)

// Format of a document body.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	Raw  Format = "raw"
)

// LedgerFileName is the failure report's name under Errors.
const LedgerFileName = "unmapped_device_details"

// Document is one file to persist.
type Document struct {
	Dir      Dir
	FileName string
	Kind     string
	// Agent is the agent identity the document is registered under in the
	// manifest. Every configs document is listed.
	Agent string
	// ConfigName is the config-store name recorded in the manifest.
	ConfigName string
	// Body is JSON encoded unless Raw is set.
	Body any
	// Raw is written verbatim.
	Raw    []byte
	Format Format
}

// Encode returns the bytes to write for d.
func (d Document) Encode() ([]byte, error) {
	if d.Raw != nil {
		return d.Raw, nil
	}
	return EncodeJSON(d.Body)
}

// EncodeJSON renders v with four-space indentation, no HTML escaping and a
// trailing newline. Map keys are sorted by encoding/json, so output is
// byte-identical across runs.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
