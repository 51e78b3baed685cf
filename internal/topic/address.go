package topic

import (
	"slices"
	"strings"
)

// String serializes the Address into its canonical topic string.
func (a *Address) String() string {
	if a == nil {
		return ""
	}
	return strings.Join(a.Segments, Separator)
}

// Equal checks for deep equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.Segments, other.Segments)
}
