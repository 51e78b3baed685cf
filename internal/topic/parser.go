package topic

import (
	"fmt"
	"strings"
)

// isValidSegment rejects names that would make a topic ambiguous.
func isValidSegment(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "\n\r\t")
}

// Parse creates an Address from its canonical string. A single trailing
// separator is tolerated since prefixes are commonly configured as `devices/`.
func Parse(raw string) (*Address, error) {
	raw = strings.TrimSuffix(raw, Separator)
	if raw == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	addr := &Address{}
	for _, seg := range strings.Split(raw, Separator) {
		if seg == "" {
			return nil, fmt.Errorf("topic %q contains empty segment", raw)
		}
		if !isValidSegment(seg) {
			return nil, fmt.Errorf("invalid topic segment: %q", seg)
		}
		addr.Segments = append(addr.Segments, seg)
	}
	return addr, nil
}
