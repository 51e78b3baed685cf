package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/agentconfgen/internal/metadata"
)

// Ledger key and type of entries about the whole-building meter.
const (
	MeterLedgerID   = "building_power_meter"
	MeterLedgerType = "building power meter"
)

var (
	// ErrAmbiguousMeter is returned when more than one meter qualifies.
	ErrAmbiguousMeter = errors.New("more than one building power meter found")
	// ErrMeterNotFound is returned when no meter qualifies.
	ErrMeterNotFound = errors.New("building power meter not found")
)

// FindMeter returns the single whole-building meter. A configured id narrows
// the candidates by equipment id or name.
func FindMeter(ctx context.Context, src metadata.Source, configuredID string) (metadata.Equipment, error) {
	all, err := src.FindEquipment(ctx, metadata.Meter)
	if err != nil {
		return metadata.Equipment{}, fmt.Errorf("listing meters: %w", err)
	}

	cands := all
	if configuredID != "" {
		want := metadata.NormalizeID(configuredID)
		cands = nil
		for _, m := range all {
			if m.ID == want || m.Name == configuredID {
				cands = append(cands, m)
			}
		}
	}

	switch {
	case len(cands) == 1:
		return cands[0], nil
	case len(cands) == 0 && configuredID != "":
		return metadata.Equipment{}, fmt.Errorf("%w: no meter with the configured power_meter_id %q", ErrMeterNotFound, configuredID)
	case len(cands) == 0:
		return metadata.Equipment{}, fmt.Errorf("%w: please add 'power_meter_id' parameter to the configuration "+
			"and provide the equipment id of the whole building power meter", ErrMeterNotFound)
	case configuredID != "":
		return metadata.Equipment{}, fmt.Errorf("%w: %d meters match the configured power_meter_id %q",
			ErrAmbiguousMeter, len(cands), configuredID)
	}
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.ID
	}
	return metadata.Equipment{}, fmt.Errorf("%w: candidates %v; please add 'power_meter_id' parameter to the "+
		"configuration and provide the equipment id of the whole building power meter", ErrAmbiguousMeter, ids)
}
