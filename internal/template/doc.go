// Package template instantiates agent configuration templates for one
// equipment node.
//
// Templates are plain decoded documents (maps, slices, strings, numbers,
// booleans). Instantiation never mutates the template; it builds a new tree
// and applies, in a single pass per string:
//
//   - exact-match substitution of values equal to a role name
//   - `LIST(a, b)` expansion into a sequence of point names
//   - role substitution inside expression fields (conditions, operations)
//   - `SUM(...)` and `AVG(...)` expansion over the members of a group
//
// Roles inside expressions are matched longest name first at every position,
// and replacement text is never rescanned, so a role that is a prefix of
// another role cannot corrupt it.
package template
