package metadata

import (
	"context"
	"fmt"
)

// Static is an in-memory Source backed by literal tables.
type Static struct {
	Equipment []Equipment
	// Points maps equipment ID to role to point name.
	Points map[string]map[string]string
	// Registry maps equipment ID to its full point list.
	Registry map[string][]Point
	// Naming overrides the identity naming convention when set.
	Naming func(raw, role string, kind Kind, owner string) string
}

// FindEquipment returns the equipment of kind in table order.
func (s *Static) FindEquipment(_ context.Context, kind Kind) ([]Equipment, error) {
	var out []Equipment
	for _, e := range s.Equipment {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	if err := CheckUnique(out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindPoint looks role up in the Points table.
func (s *Static) FindPoint(_ context.Context, equipID string, kind Kind, role string, scope Scope) (string, bool, error) {
	if err := RequireScope(kind, equipID, scope); err != nil {
		return "", false, err
	}
	p, ok := s.Points[equipID][role]
	return p, ok && p != "", nil
}

// ListPoints returns the Registry entry for equipID.
func (s *Static) ListPoints(_ context.Context, equipID string, kind Kind, scope Scope) ([]Point, []string, error) {
	if err := RequireScope(kind, equipID, scope); err != nil {
		return nil, nil, err
	}
	pts, ok := s.Registry[equipID]
	if !ok {
		return nil, nil, fmt.Errorf("no point list for %s %q", kind, equipID)
	}
	return pts, nil, nil
}

// PointName implements Namer.
func (s *Static) PointName(raw, role string, kind Kind, owner string) string {
	if s.Naming == nil {
		return raw
	}
	return s.Naming(raw, role, kind, owner)
}
