package metadata

import (
	"fmt"
	"strings"
)

// Kind is the equipment type tag.
type Kind string

const (
	AirHandler        Kind = "ahu"
	TerminalUnit      Kind = "vav"
	Meter             Kind = "power_meter"
	LightingCircuit   Kind = "lighting"
	OccupancyDetector Kind = "occupancy_detector"

	// AnyKind keys role and default maps that apply to every kind without
	// an explicit entry.
	AnyKind Kind = "*"
)

// Kinds lists every concrete equipment kind.
var Kinds = []Kind{AirHandler, TerminalUnit, Meter, LightingCircuit, OccupancyDetector}

var kindAliases = map[string]Kind{
	"ahu":                AirHandler,
	"airhandler":         AirHandler,
	"vav":                TerminalUnit,
	"terminalunit":       TerminalUnit,
	"power_meter":        Meter,
	"meter":              Meter,
	"electric_meter":     Meter,
	"lighting":           LightingCircuit,
	"lightingcircuit":    LightingCircuit,
	"occupancy_detector": OccupancyDetector,
	"occupancydetector":  OccupancyDetector,
}

// ParseKind maps a configuration key to a Kind.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Label is the human readable type name.
func (k Kind) Label() string {
	switch k {
	case AirHandler:
		return "AirHandler"
	case TerminalUnit:
		return "TerminalUnit"
	case Meter:
		return "Meter"
	case LightingCircuit:
		return "LightingCircuit"
	case OccupancyDetector:
		return "OccupancyDetector"
	}
	return string(k)
}

// RoomScoped reports whether point lookups for this kind need Scope.Room,
// because fixture and detector identifiers are only unique within a room.
func (k Kind) RoomScoped() bool {
	return k == LightingCircuit || k == OccupancyDetector
}
