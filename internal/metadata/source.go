package metadata

import (
	"context"
	"fmt"
)

// Scope carries the disambiguating keys some kinds need.
type Scope struct {
	Room string
}

// Source is implemented by every metadata back end. Both methods are pure
// queries. Zero results are not errors.
type Source interface {
	// FindEquipment returns equipment of kind in a stable order.
	FindEquipment(ctx context.Context, kind Kind) ([]Equipment, error)
	// FindPoint returns the concrete point for role on equipID. It reports
	// false when no unique point matches.
	FindPoint(ctx context.Context, equipID string, kind Kind, role string, scope Scope) (string, bool, error)
}

// Point is one entry of a device's point list, used for registry files.
type Point struct {
	Reference  string
	Name       string
	Units      string
	ObjectType string
	Index      string
	Writable   bool
}

// PointLister is implemented by sources that can enumerate every point of a
// device. Incomplete points are reported by name and skipped.
type PointLister interface {
	ListPoints(ctx context.Context, equipID string, kind Kind, scope Scope) (points []Point, incomplete []string, err error)
}

// Namer is implemented by sources whose external point names differ from the
// raw names, e.g. by suffixing the owning fixture.
type Namer interface {
	PointName(raw, role string, kind Kind, owner string) string
}

// ExternalName applies src's naming convention if it has one.
func ExternalName(src Source, raw, role string, kind Kind, owner string) string {
	if n, ok := src.(Namer); ok {
		return n.PointName(raw, role, kind, owner)
	}
	return raw
}

// RequireScope validates scope for kind.
func RequireScope(kind Kind, equipID string, scope Scope) error {
	if kind.RoomScoped() && scope.Room == "" {
		return fmt.Errorf("%w: %s %q needs a room", ErrMissingContext, kind, equipID)
	}
	return nil
}
