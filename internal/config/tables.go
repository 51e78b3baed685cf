package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vk/agentconfgen/internal/metadata"
)

// Text is a scalar that may be written as a string or a number.
type Text string

// String returns the normalized value.
func (t Text) String() string { return string(t) }

// UnmarshalJSON accepts strings, numbers and null.
func (t *Text) UnmarshalJSON(b []byte) error {
	s, err := scalarText(b)
	if err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

func scalarText(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return "", nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		return metadata.NormalizeID(string(b)), nil
	}
	return "", fmt.Errorf("expected a string or number, got %s", b)
}

// RoleTable is point_meta_map. It accepts a nested form keyed by equipment
// kind, a flat role form applied to every kind, or a mix of both. Labels may
// be a string, a number or a list of either.
type RoleTable metadata.RoleMap

// UnmarshalJSON implements json.Unmarshaler.
func (r *RoleTable) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("point_meta_map: %w", err)
	}
	out := RoleTable{}
	for _, key := range sortedKeys(raw) {
		val := raw[key]
		if isObject(val) {
			kind, err := metadata.ParseKind(key)
			if err != nil {
				return fmt.Errorf("point_meta_map: %w", err)
			}
			var roles map[string]json.RawMessage
			if err := json.Unmarshal(val, &roles); err != nil {
				return fmt.Errorf("point_meta_map.%s: %w", key, err)
			}
			table := make(map[string][]string, len(roles))
			for role, lv := range roles {
				labels, err := parseLabels(lv)
				if err != nil {
					return fmt.Errorf("point_meta_map.%s.%s: %w", key, role, err)
				}
				table[role] = labels
			}
			out[kind] = table
			continue
		}
		labels, err := parseLabels(val)
		if err != nil {
			return fmt.Errorf("point_meta_map.%s: %w", key, err)
		}
		if out[metadata.AnyKind] == nil {
			out[metadata.AnyKind] = map[string][]string{}
		}
		out[metadata.AnyKind][key] = labels
	}
	*r = out
	return nil
}

func parseLabels(b json.RawMessage) ([]string, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return nil, err
		}
		labels := make([]string, 0, len(items))
		for _, it := range items {
			s, err := scalarText(it)
			if err != nil {
				return nil, err
			}
			if s != "" {
				labels = append(labels, s)
			}
		}
		return labels, nil
	}
	s, err := scalarText(b)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	return []string{s}, nil
}

// DefaultTable is point_default_map, nested by kind, flat, or mixed.
type DefaultTable metadata.Defaults

// UnmarshalJSON implements json.Unmarshaler.
func (d *DefaultTable) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("point_default_map: %w", err)
	}
	out := DefaultTable{}
	for _, key := range sortedKeys(raw) {
		val := raw[key]
		if isObject(val) {
			kind, err := metadata.ParseKind(key)
			if err != nil {
				return fmt.Errorf("point_default_map: %w", err)
			}
			var roles map[string]json.RawMessage
			if err := json.Unmarshal(val, &roles); err != nil {
				return fmt.Errorf("point_default_map.%s: %w", key, err)
			}
			table := make(map[string]string, len(roles))
			for role, v := range roles {
				s, err := scalarText(v)
				if err != nil {
					return fmt.Errorf("point_default_map.%s.%s: %w", key, role, err)
				}
				table[role] = s
			}
			out[kind] = table
			continue
		}
		s, err := scalarText(val)
		if err != nil {
			return fmt.Errorf("point_default_map.%s: %w", key, err)
		}
		if out[metadata.AnyKind] == nil {
			out[metadata.AnyKind] = map[string]string{}
		}
		out[metadata.AnyKind][key] = s
	}
	*d = out
	return nil
}

func isObject(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
