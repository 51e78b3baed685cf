package driver

import (
	"context"
	"fmt"

	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/engine"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/output"
	"github.com/vk/agentconfgen/internal/resolve"
)

// lighting emits one logical device per room covering every light fixture
// and the room's occupancy detector, collected in a single document.
func (g *Generator) lighting(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	env := g.env

	lights, err := env.Source.FindEquipment(ctx, metadata.LightingCircuit)
	if err != nil {
		return fmt.Errorf("listing lighting circuits: %w", err)
	}
	if len(lights) == 0 {
		return nil
	}
	detectors, err := env.Source.FindEquipment(ctx, metadata.OccupancyDetector)
	if err != nil {
		return fmt.Errorf("listing occupancy detectors: %w", err)
	}
	byRoom := make(map[string]metadata.Equipment)
	for _, d := range detectors {
		if _, ok := byRoom[d.Parent]; !ok && d.Parent != metadata.NoParent {
			byRoom[d.Parent] = d
		}
	}

	base := env.Model.DeviceTopicBase()
	var entries []any
	for _, room := range metadata.GroupByParent(lights) {
		if room.Parent == metadata.NoParent {
			logger.Debug("Light fixtures without a room are not mapped.", "count", len(room.Members))
			continue
		}
		id := room.Parent + "_lights"
		u := unit{
			node:        engine.Node{LedgerID: id, Kind: metadata.LightingCircuit, Topic: base.Child(id)},
			equip:       room.Members[0],
			scope:       metadata.Scope{Room: room.Parent},
			registryID:  id,
			deviceFirst: true,
		}
		for _, l := range room.Members {
			u.members = append(u.members, member{id: l.ID, kind: metadata.LightingCircuit})
		}
		if d, ok := byRoom[room.Parent]; ok {
			u.fallback = &d
			u.members = append(u.members, member{id: d.ID, kind: metadata.OccupancyDetector})
		}
		u.resolve = func(ctx context.Context) (*resolve.Resolution, error) {
			return g.roomRoles(ctx, id, room.Members[0], u.fallback, u.scope)
		}

		es, err := g.device(ctx, u)
		if err != nil {
			return err
		}
		entries = append(entries, es...)
	}
	if len(entries) > 0 {
		g.docs = append(g.docs, g.document(output.Configs, LightsFile, "lighting", entries))
	}
	return nil
}

// roomRoles resolves fixture roles on the first fixture and detector roles
// on the detector, both flagged under the room's ledger entry. Detector roles
// need their own table; a flat table describes the fixtures.
func (g *Generator) roomRoles(ctx context.Context, ledgerID string, light metadata.Equipment, detector *metadata.Equipment, scope metadata.Scope) (*resolve.Resolution, error) {
	env := g.env
	res, err := env.Resolver.ResolveFor(ctx, ledgerID, light.ID, metadata.LightingCircuit,
		env.RoleNames(metadata.LightingCircuit), scope)
	if err != nil {
		return nil, err
	}
	if _, ok := env.Model.Roles()[metadata.OccupancyDetector]; !ok || detector == nil {
		return res, nil
	}
	occ, err := env.Resolver.ResolveFor(ctx, ledgerID, detector.ID, metadata.OccupancyDetector,
		env.RoleNames(metadata.OccupancyDetector), scope)
	if err != nil {
		return nil, err
	}
	res.Merge(occ)
	return res, nil
}
