package metadata

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoParent is the single sentinel for equipment without a parent reference.
const NoParent = ""

// Attribute names exposed to driver templates as placeholders.
const (
	AttrDeviceAddress = "DeviceAddress"
	AttrDeviceID      = "DeviceId"
	AttrGroup         = "Group"
)

// AttributeRoles are the equipment attributes a template may reference.
var AttributeRoles = []string{AttrDeviceAddress, AttrDeviceID, AttrGroup}

// Equipment is one controllable or observable unit. For lighting circuits and
// occupancy detectors Parent is the owning room.
type Equipment struct {
	ID         string
	Name       string
	Kind       Kind
	Parent     string
	Attributes map[string]string
}

// Attr returns a non-empty attribute value.
func (e Equipment) Attr(name string) (string, bool) {
	v, ok := e.Attributes[name]
	return v, ok && v != ""
}

// DisplayName returns Name, falling back to ID.
func (e Equipment) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// NormalizeRef maps the many spellings of "no reference" found in exports
// (blank, NaN, null, None) to NoParent.
func NormalizeRef(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "<na>":
		return NoParent
	}
	return s
}

// CheckUnique returns ErrDuplicateEquipment if two entries share an ID.
func CheckUnique(eqs []Equipment) error {
	seen := make(map[string]struct{}, len(eqs))
	for _, e := range eqs {
		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: %s %q", ErrDuplicateEquipment, e.Kind, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// Group is a parent reference with its children in source order.
type Group struct {
	Parent  string
	Members []Equipment
}

// GroupByParent buckets equipment by Parent, keeping the order in which each
// parent was first seen.
func GroupByParent(eqs []Equipment) []Group {
	idx := make(map[string]int)
	var groups []Group
	for _, e := range eqs {
		i, ok := idx[e.Parent]
		if !ok {
			i = len(groups)
			idx[e.Parent] = i
			groups = append(groups, Group{Parent: e.Parent})
		}
		groups[i].Members = append(groups[i].Members, e)
	}
	return groups
}

// NormalizeID renders integral numeric identifiers without a fractional
// part, so "12.0" from a spreadsheet export and 12 from a config file agree.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && !strings.ContainsAny(s, "eE") {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
