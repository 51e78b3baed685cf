package template

import (
	"fmt"
	"strings"
)

// DefaultExpressionFields are the keys whose string values (and nested
// strings) hold expressions.
var DefaultExpressionFields = []string{
	"condition", "operation", "operation_args", "always", "nc", "formula", "equation",
}

// Instantiator applies Bindings to templates.
type Instantiator struct {
	fields map[string]struct{}
}

// Option configures an Instantiator.
type Option func(*Instantiator)

// WithExpressionFields replaces the expression field set.
func WithExpressionFields(names ...string) Option {
	return func(in *Instantiator) {
		in.fields = make(map[string]struct{}, len(names))
		for _, n := range names {
			in.fields[n] = struct{}{}
		}
	}
}

// New creates an Instantiator.
func New(opts ...Option) *Instantiator {
	in := &Instantiator{}
	WithExpressionFields(DefaultExpressionFields...)(in)
	for _, o := range opts {
		o(in)
	}
	return in
}

// Instantiate returns a substituted copy of tmpl.
func (in *Instantiator) Instantiate(tmpl any, b Binding) (any, error) {
	s := &substituter{b: b, roles: b.order()}
	return in.walk(s, tmpl, "", false)
}

func (in *Instantiator) walk(s *substituter, v any, path string, expr bool) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			_, isExpr := in.fields[k]
			val, err := in.walk(s, child, join(path, k), expr || isExpr)
			if err != nil {
				return nil, err
			}
			out[k] = val
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			val, err := in.walk(s, child, fmt.Sprintf("%s[%d]", path, i), expr)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	case string:
		val, err := s.value(t, expr)
		if err != nil {
			return nil, fmt.Errorf("at %s: %w", orRoot(path), err)
		}
		return val, nil
	default:
		return v, nil
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func orRoot(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

// DeepCopy returns a structural copy of a decoded document.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = DeepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = DeepCopy(child)
		}
		return out
	default:
		return v
	}
}

// References returns the candidates that tmpl mentions, in candidate order.
// Exact values and LIST arguments count everywhere; substrings count only
// inside expression fields.
func (in *Instantiator) References(tmpl any, candidates []string) []string {
	found := make(map[string]bool, len(candidates))
	var visit func(v any, expr bool)
	visit = func(v any, expr bool) {
		switch t := v.(type) {
		case map[string]any:
			for k, child := range t {
				_, isExpr := in.fields[k]
				visit(child, expr || isExpr)
			}
		case []any:
			for _, child := range t {
				visit(child, expr)
			}
		case string:
			_, isList := listArgs(t)
			for _, c := range candidates {
				if c == "" {
					continue
				}
				if t == c || ((expr || isList) && strings.Contains(t, c)) {
					found[c] = true
				}
			}
		}
	}
	visit(tmpl, false)

	var out []string
	for _, c := range candidates {
		if found[c] {
			out = append(out, c)
		}
	}
	return out
}
