package ilc

import (
	"context"
	"fmt"

	"github.com/vk/agentconfgen/internal/engine"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/resolve"
	"github.com/vk/agentconfgen/internal/template"
)

// typeTemplates are the per-device templates of one device type.
type typeTemplates struct {
	control  map[string]any
	criteria map[string]any
}

// configSet accumulates the control and criteria documents of one type,
// keyed by device topic relative to the building.
type configSet struct {
	control  map[string]any
	criteria map[string]any
}

func newConfigSet() *configSet {
	return &configSet{control: map[string]any{}, criteria: map[string]any{}}
}

// add instantiates both templates for one device and files them under key.
func (g *Generator) add(ctx context.Context, set *configSet, tm typeTemplates, n engine.Node, key, name string, b template.Binding) error {
	env := g.env
	ctl, ok, err := env.Instantiate(ctx, n, tm.control, b)
	if err != nil || !ok {
		return err
	}
	crit, ok, err := env.Instantiate(ctx, n, tm.criteria, b)
	if err != nil || !ok {
		return err
	}
	topic := n.Topic.String()
	if m, ok := ctl.(map[string]any); ok {
		m["device_topic"] = topic
	}
	if m, ok := crit.(map[string]any); ok {
		m["device_topic"] = topic
	}
	set.control[key] = map[string]any{name: ctl}
	set.criteria[key] = map[string]any{name: crit}
	return env.Emit(ctx, n)
}

// declared lists the roles templates of device type t may reference.
func (g *Generator) declared(t string) []string {
	env := g.env
	if t == TypeVAV {
		return env.RoleNames(metadata.TerminalUnit)
	}
	return append(env.RoleNames(metadata.LightingCircuit), g.detectorRoles()...)
}

// detectorRoles are only taken from an explicit occupancy detector table.
func (g *Generator) detectorRoles() []string {
	if _, ok := g.env.Model.Roles()[metadata.OccupancyDetector]; !ok {
		return nil
	}
	return g.env.RoleNames(metadata.OccupancyDetector)
}

// terminalUnits configures every terminal unit whose roles resolve. Units
// fed by a known air handler are keyed ahu/vav, others by their own name.
func (g *Generator) terminalUnits(ctx context.Context, tm typeTemplates) (*configSet, error) {
	env := g.env
	vavs, err := env.Source.FindEquipment(ctx, metadata.TerminalUnit)
	if err != nil {
		return nil, fmt.Errorf("listing terminal units: %w", err)
	}
	if err := metadata.CheckUnique(vavs); err != nil {
		return nil, err
	}
	ahus, err := env.Source.FindEquipment(ctx, metadata.AirHandler)
	if err != nil {
		return nil, fmt.Errorf("listing air handlers: %w", err)
	}
	names := make(map[string]string, len(ahus))
	for _, a := range ahus {
		names[a.ID] = a.DisplayName()
	}

	roles := env.RoleNames(metadata.TerminalUnit)
	base := env.Model.AgentTopicBase()
	set := newConfigSet()
	for _, vav := range vavs {
		name := vav.DisplayName()
		t := base
		if ahu, ok := names[vav.Parent]; ok {
			t = t.Child(ahu)
		}
		t = t.Child(name)
		n := engine.Node{LedgerID: vav.ID, Kind: metadata.TerminalUnit, Topic: t}
		if err := env.Begin(ctx, n); err != nil {
			return nil, err
		}

		res, err := env.Resolver.Resolve(ctx, vav.ID, metadata.TerminalUnit, roles, metadata.Scope{})
		if err != nil {
			if err := env.Skip(ctx, n, err.Error()); err != nil {
				return nil, err
			}
			continue
		}
		ok, err := env.Settle(ctx, n, res)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		key := t.Relative(len(base.Segments)).String()
		b := template.Binding{Points: res.Points, Declared: roles}
		if err := g.add(ctx, set, tm, n, key, name, b); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// rooms configures one lighting device per room. Fixture roles resolve on
// the room's first fixture; SUM and AVG markers expand over every fixture.
func (g *Generator) rooms(ctx context.Context, tm typeTemplates) (*configSet, error) {
	env := g.env
	lights, err := env.Source.FindEquipment(ctx, metadata.LightingCircuit)
	if err != nil {
		return nil, fmt.Errorf("listing lighting circuits: %w", err)
	}
	detectors, err := env.Source.FindEquipment(ctx, metadata.OccupancyDetector)
	if err != nil {
		return nil, fmt.Errorf("listing occupancy detectors: %w", err)
	}
	byRoom := make(map[string]metadata.Equipment)
	for _, d := range detectors {
		if _, ok := byRoom[d.Parent]; !ok {
			byRoom[d.Parent] = d
		}
	}

	lightRoles := env.RoleNames(metadata.LightingCircuit)
	occRoles := g.detectorRoles()
	declared := append(append([]string{}, lightRoles...), occRoles...)
	base := env.Model.AgentTopicBase()
	set := newConfigSet()

	for _, room := range metadata.GroupByParent(lights) {
		if room.Parent == metadata.NoParent {
			continue
		}
		id := room.Parent + "_lights"
		n := engine.Node{LedgerID: id, Kind: metadata.LightingCircuit, Topic: base.Child(id)}
		if err := env.Begin(ctx, n); err != nil {
			return nil, err
		}
		scope := metadata.Scope{Room: room.Parent}
		first := room.Members[0]

		res, err := env.Resolver.ResolveFor(ctx, id, first.ID, metadata.LightingCircuit, lightRoles, scope)
		if err != nil {
			if err := env.Skip(ctx, n, err.Error()); err != nil {
				return nil, err
			}
			continue
		}
		raw := make(map[string]string, len(res.Points))
		points := make(map[string]string, len(res.Points)+len(occRoles))
		for role, p := range res.Points {
			raw[role] = p
			points[role] = metadata.ExternalName(env.Source, p, role, metadata.LightingCircuit, first.ID)
		}

		if len(occRoles) > 0 {
			det, ok := byRoom[room.Parent]
			if !ok {
				occ := &resolve.Resolution{Points: map[string]string{}}
				for _, role := range occRoles {
					occ.Missing = append(occ.Missing, resolve.Missing{
						Role: role, Labels: env.Model.Roles().Labels(metadata.OccupancyDetector, role),
					})
				}
				res.Merge(occ)
			} else {
				occ, err := env.Resolver.ResolveFor(ctx, id, det.ID, metadata.OccupancyDetector, occRoles, scope)
				if err != nil {
					if err := env.Skip(ctx, n, err.Error()); err != nil {
						return nil, err
					}
					continue
				}
				for role, p := range occ.Points {
					points[role] = metadata.ExternalName(env.Source, p, role, metadata.OccupancyDetector, det.ID)
				}
				res.Merge(occ)
			}
		}
		ok, err := env.Settle(ctx, n, res)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		members := make([]string, len(room.Members))
		for i, l := range room.Members {
			members[i] = l.ID
		}
		group := &template.Group{
			Members: members,
			Name: func(point, role, member string) string {
				r, ok := raw[role]
				if !ok {
					return point
				}
				return metadata.ExternalName(env.Source, r, role, metadata.LightingCircuit, member)
			},
		}
		b := template.Binding{Points: points, Declared: declared, Group: group}
		if err := g.add(ctx, set, tm, n, id, id, b); err != nil {
			return nil, err
		}
	}
	return set, nil
}
