package metadata

import "sort"

// RoleMap maps kind to role to the source labels that identify the role's
// point. AnyKind holds the flat form that applies to every kind.
type RoleMap map[Kind]map[string][]string

// For returns the role table for kind, falling back to AnyKind.
func (m RoleMap) For(kind Kind) map[string][]string {
	if r, ok := m[kind]; ok {
		return r
	}
	return m[AnyKind]
}

// Roles returns the roles declared for kind in lexical order.
func (m RoleMap) Roles(kind Kind) []string {
	table := m.For(kind)
	roles := make([]string, 0, len(table))
	for r := range table {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

// Labels returns the source labels configured for role on kind.
func (m RoleMap) Labels(kind Kind, role string) []string {
	return m.For(kind)[role]
}

// Has reports whether kind has an explicit or fallback table.
func (m RoleMap) Has(kind Kind) bool {
	return len(m.For(kind)) > 0
}

// Defaults maps kind to role to a fallback point name.
type Defaults map[Kind]map[string]string

// Lookup returns the default for role on kind, checking the kind table
// first and the flat table second.
func (d Defaults) Lookup(kind Kind, role string) (string, bool) {
	if v, ok := d[kind][role]; ok && v != "" {
		return v, true
	}
	if v, ok := d[AnyKind][role]; ok && v != "" {
		return v, true
	}
	return "", false
}
