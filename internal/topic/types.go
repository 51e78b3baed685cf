package topic

// Separator joins topic segments.
const Separator = "/"

// Address is the structured representation of a device topic.
type Address struct {
	Segments []string
}

// New builds an Address from already-validated segments. Empty segments are
// dropped so that an unset campus or building does not produce `a//b`.
func New(segments ...string) *Address {
	a := &Address{}
	for _, s := range segments {
		if s != "" {
			a.Segments = append(a.Segments, s)
		}
	}
	return a
}

// Child returns a new Address with name appended.
func (a *Address) Child(name string) *Address {
	if a == nil {
		return New(name)
	}
	segs := make([]string, 0, len(a.Segments)+1)
	segs = append(segs, a.Segments...)
	return New(append(segs, name)...)
}

// Base returns the last segment, or "" for an empty address.
func (a *Address) Base() string {
	if a == nil || len(a.Segments) == 0 {
		return ""
	}
	return a.Segments[len(a.Segments)-1]
}

// Relative returns the address with the first n segments removed.
func (a *Address) Relative(n int) *Address {
	if a == nil || n >= len(a.Segments) {
		return &Address{}
	}
	return New(a.Segments[n:]...)
}
