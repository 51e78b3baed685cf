package template

import (
	"fmt"
	"strconv"
	"strings"
)

const listMarker = "LIST"

var aggregateMarkers = []string{"SUM", "AVG"}

type substituter struct {
	b     Binding
	roles []string
}

func (s *substituter) declared(name string) bool {
	for _, r := range s.b.Declared {
		if r == name {
			return true
		}
	}
	return false
}

func (s *substituter) isRole(name string) bool {
	_, ok := s.b.Points[name]
	return ok || s.declared(name)
}

// value substitutes one template string.
func (s *substituter) value(str string, expr bool) (any, error) {
	if args, ok := listArgs(str); ok {
		out := make([]any, 0, len(args))
		for _, a := range args {
			v, err := s.scalar(a, true)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return s.scalar(str, expr)
}

func (s *substituter) scalar(str string, expr bool) (any, error) {
	if v, ok := s.b.Values[str]; ok {
		return v, nil
	}
	if p, ok := s.b.Points[str]; ok {
		return p, nil
	}
	if s.declared(str) {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedRole, str)
	}
	if !expr {
		return str, nil
	}
	return s.expand(str, "", false)
}

// expand rewrites str left to right. When inMember is set, role points are
// renamed for member through the group's naming function.
func (s *substituter) expand(str, member string, inMember bool) (string, error) {
	var sb strings.Builder
	grouped := !inMember && s.b.Group != nil && len(s.b.Group.Members) > 0

	for i := 0; i < len(str); {
		if grouped {
			if op, ok := markerAt(str, i); ok {
				open := i + len(op)
				end, err := matchParen(str, open)
				if err != nil {
					return "", fmt.Errorf("%s marker in %q: %w", op, str, err)
				}
				agg, err := s.aggregate(op, str[open+1:end])
				if err != nil {
					return "", err
				}
				sb.WriteString(agg)
				i = end + 1
				continue
			}
		}
		if role, ok := s.roleAt(str, i); ok {
			point, bound := s.b.Points[role]
			if !bound {
				return "", fmt.Errorf("%w: %s", ErrUnresolvedRole, role)
			}
			if inMember {
				point = s.b.Group.name(point, role, member)
			}
			sb.WriteString(point)
			i += len(role)
			continue
		}
		sb.WriteByte(str[i])
		i++
	}
	return sb.String(), nil
}

// aggregate expands the inner text of a SUM or AVG marker once per member.
func (s *substituter) aggregate(op, inner string) (string, error) {
	inner = strings.TrimSpace(inner)
	single := s.isRole(inner)
	members := s.b.Group.Members

	parts := make([]string, 0, len(members))
	for _, m := range members {
		e, err := s.expand(inner, m, true)
		if err != nil {
			return "", err
		}
		if !single {
			e = "(" + e + ")"
		}
		parts = append(parts, e)
	}

	out := "(" + strings.Join(parts, " + ") + ")"
	if op == "AVG" {
		out += "/" + strconv.Itoa(len(members))
	}
	return out, nil
}

func (s *substituter) roleAt(str string, i int) (string, bool) {
	rest := str[i:]
	for _, r := range s.roles {
		if strings.HasPrefix(rest, r) {
			return r, true
		}
	}
	return "", false
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// markerAt reports an aggregate marker starting at i on an identifier boundary.
func markerAt(str string, i int) (string, bool) {
	if i > 0 && isIdentByte(str[i-1]) {
		return "", false
	}
	for _, op := range aggregateMarkers {
		if strings.HasPrefix(str[i:], op+"(") {
			return op, true
		}
	}
	return "", false
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(str string, open int) (int, error) {
	depth := 0
	for i := open; i < len(str); i++ {
		switch str[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, ErrUnbalanced
}

// listArgs parses a whole-value `LIST(a, b, ...)` marker.
func listArgs(str string) ([]string, bool) {
	t := strings.TrimSpace(str)
	if !strings.HasPrefix(t, listMarker+"(") || !strings.HasSuffix(t, ")") {
		return nil, false
	}
	open := len(listMarker)
	end, err := matchParen(t, open)
	if err != nil || end != len(t)-1 {
		return nil, false
	}

	var args []string
	depth, start := 0, open+1
	for i := open + 1; i < end; i++ {
		switch t[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(t[start:i]))
				start = i + 1
			}
		}
	}
	if last := strings.TrimSpace(t[start:end]); last != "" || len(args) > 0 {
		args = append(args, last)
	}
	return args, true
}
