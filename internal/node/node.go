// Package node defines the per-device generation state machine used while
// building load-control documents.
package node

import (
	"errors"
	"fmt"
)

// Status is the generation state of one device.
type Status int32

const (
	// Pending indicates the device was enumerated but not yet resolved.
	Pending Status = iota
	// PointsResolved indicates every required role has a point.
	PointsResolved
	// Emitted indicates the device's documents were produced.
	Emitted
	// SkippedMissingPoints indicates the device contributed only to the ledger.
	SkippedMissingPoints
)

// ErrInvalidTransition is returned for backward or skipping transitions.
var ErrInvalidTransition = errors.New("invalid status transition")

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case PointsResolved:
		return "POINTS_RESOLVED"
	case Emitted:
		return "EMITTED"
	case SkippedMissingPoints:
		return "SKIPPED_MISSING_POINTS"
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == Emitted || s == SkippedMissingPoints
}

// Transition validates from -> to. Allowed edges are
// PENDING -> POINTS_RESOLVED -> EMITTED and
// PENDING|POINTS_RESOLVED -> SKIPPED_MISSING_POINTS.
func Transition(from, to Status) error {
	ok := false
	switch to {
	case PointsResolved:
		ok = from == Pending
	case Emitted:
		ok = from == PointsResolved
	case SkippedMissingPoints:
		ok = from == Pending || from == PointsResolved
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
