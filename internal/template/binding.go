package template

import (
	"errors"
	"sort"
)

var (
	// ErrUnresolvedRole is returned when a template references a role that the
	// node declares but could not resolve.
	ErrUnresolvedRole = errors.New("template references unresolved role")
	// ErrUnbalanced is returned for aggregate or list markers whose
	// parentheses do not close.
	ErrUnbalanced = errors.New("unbalanced parentheses")
)

// Group is the member set an aggregate marker expands over, e.g. the light
// fixtures of one room.
type Group struct {
	Members []string
	// Name returns the external point name of point for one member. Nil means
	// identity, which makes every member expand to the same text.
	Name func(point, role, member string) string
}

func (g *Group) name(point, role, member string) string {
	if g.Name == nil {
		return point
	}
	return g.Name(point, role, member)
}

// Binding is everything a template needs for one node.
type Binding struct {
	// Points maps role to concrete point name.
	Points map[string]string
	// Values maps placeholders to exact-match replacements of any type, e.g.
	// a numeric driver group. Values win over Points for exact matches.
	Values map[string]any
	// Declared lists every role the node knows about. A reference to a
	// declared role absent from Points is an error.
	Declared []string
	// Group drives SUM and AVG expansion. Nil leaves markers in place.
	Group *Group
}

// order returns the bound role names sorted longest first, ties broken
// lexically so output is stable.
func (b Binding) order() []string {
	roles := make([]string, 0, len(b.Points)+len(b.Declared))
	seen := make(map[string]struct{})
	add := func(r string) {
		if r == "" {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	for r := range b.Points {
		add(r)
	}
	for _, r := range b.Declared {
		add(r)
	}
	sort.Slice(roles, func(i, j int) bool {
		if len(roles[i]) != len(roles[j]) {
			return len(roles[i]) > len(roles[j])
		}
		return roles[i] < roles[j]
	})
	return roles
}
