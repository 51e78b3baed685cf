package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode builds a normalized, validated Model from a generic document as
// produced by any of the format loaders. Numbers in config_template keep
// their literal form so regenerated outputs are byte-identical.
func Decode(doc map[string]any) (*Model, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return DecodeJSON(b)
}

// DecodeJSON is Decode for a standard JSON document.
func DecodeJSON(b []byte) (*Model, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m Model
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
