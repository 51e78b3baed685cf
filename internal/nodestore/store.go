// Package nodestore defines the interface for tracking the generation status
// of devices during a load-control run.
//
// The store is created once per run, populated as devices are enumerated
// (every device starts Pending) and queried at the end for the run summary.
// It rejects transitions that would move a device backwards, so each device
// is processed in exactly one pass.
package nodestore

import (
	"context"

	"github.com/vk/agentconfgen/internal/node"
	"github.com/vk/agentconfgen/internal/topic"
)

// Store tracks node.Status per device topic.
type Store interface {
	// Track registers a device as Pending. Tracking a known device is an error.
	Track(ctx context.Context, id topic.Address) error

	// SetStatus moves a tracked device to status, validating the transition
	// with node.Transition.
	SetStatus(ctx context.Context, id topic.Address, status node.Status) error

	// GetStatus returns the current status of a tracked device.
	GetStatus(ctx context.Context, id topic.Address) (node.Status, error)

	// Summary counts devices per status.
	Summary(ctx context.Context) map[node.Status]int
}
