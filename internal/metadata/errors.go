package metadata

import "errors"

var (
	// ErrMissingContext is returned when a room-scoped lookup has no room.
	ErrMissingContext = errors.New("required lookup context missing")
	// ErrDuplicateEquipment is returned when a source yields the same ID twice.
	ErrDuplicateEquipment = errors.New("duplicate equipment identifier")
	// ErrUnknownKind is returned for unrecognized equipment type tags.
	ErrUnknownKind = errors.New("unknown equipment kind")
)
