package driver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/agentconfgen/internal/engine"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/output"
	"github.com/vk/agentconfgen/internal/resolve"
	"github.com/vk/agentconfgen/internal/template"
)

// unit describes one driver device.
type unit struct {
	node  engine.Node
	equip metadata.Equipment
	scope metadata.Scope
	// fallback supplies attributes equip lacks, e.g. a room's detector.
	fallback *metadata.Equipment
	// members are listed for the registry file instead of equip.
	members []member
	// registryID names the registry file; defaults to the equipment id.
	registryID string
	// deviceFirst lists the device entry before its registry entry.
	deviceFirst bool
	// resolve overrides role resolution for composite devices.
	resolve func(ctx context.Context) (*resolve.Resolution, error)
}

// member is one piece of equipment contributing points to a composite
// device.
type member struct {
	id   string
	kind metadata.Kind
}

// device instantiates the template for u and returns its config-store
// entries. Per-device failures land in the ledger and yield no entries.
func (g *Generator) device(ctx context.Context, u unit) ([]any, error) {
	env := g.env
	n := u.node
	if err := env.Begin(ctx, n); err != nil {
		return nil, err
	}

	roles := env.RoleNames(n.Kind)
	var res *resolve.Resolution
	var err error
	if u.resolve != nil {
		res, err = u.resolve(ctx)
	} else {
		res, err = env.Resolver.ResolveFor(ctx, n.LedgerID, u.equip.ID, n.Kind, roles, u.scope)
	}
	if err != nil {
		return nil, env.Skip(ctx, n, err.Error())
	}
	ok, err := env.Settle(ctx, n, res)
	if err != nil || !ok {
		return nil, err
	}

	values, missing := g.attributes(u)
	if len(missing) > 0 {
		return nil, env.Skip(ctx, n, fmt.Sprintf("Unable to find device attribute(s) %s for %s",
			strings.Join(missing, ", "), u.equip.ID))
	}

	body, ok, err := env.Instantiate(ctx, n, env.Model.ConfigTemplate,
		template.Binding{Points: res.Points, Values: values, Declared: roles})
	if err != nil || !ok {
		return nil, err
	}
	cfg, _ := body.(map[string]any)
	if cfg == nil {
		cfg = map[string]any{}
	}
	entry := map[string]any{"config-name": n.Topic.String(), "config": cfg}

	entries := []any{entry}
	if g.lister != nil {
		reg, ok, err := g.registry(ctx, u)
		if err != nil || !ok {
			return nil, err
		}
		id := u.registryID
		if id == "" {
			id = u.equip.ID
		}
		name := "registry_config/" + id + ".csv"
		cfg["registry_config"] = "config://" + name
		g.docs = append(g.docs, output.Document{
			Dir:        output.Configs,
			FileName:   "registry_" + id + ".csv",
			Kind:       "registry",
			Agent:      g.vip,
			ConfigName: name,
			Raw:        reg,
			Format:     output.CSV,
		})
		regEntry := map[string]any{
			"config-name": name,
			"config":      string(output.Configs) + "/registry_" + id + ".csv",
			"config-type": string(output.CSV),
		}
		if u.deviceFirst {
			entries = append(entries, regEntry)
		} else {
			entries = []any{regEntry, entry}
		}
	}

	if grp, ok := groupOf(u); ok {
		g.groups[grp]++
	}
	if err := env.Emit(ctx, n); err != nil {
		return nil, err
	}
	return entries, nil
}

// attributes binds the equipment attributes the template references.
// Air handlers and meters always scrape in group 0, as does equipment
// without a group.
func (g *Generator) attributes(u unit) (map[string]any, []string) {
	values := make(map[string]any, len(g.attrs))
	var missing []string
	for _, a := range g.attrs {
		if a == metadata.AttrGroup {
			grp, _ := groupOf(u)
			values[a] = grp
			continue
		}
		v, ok := u.equip.Attr(a)
		if !ok && u.fallback != nil {
			v, ok = u.fallback.Attr(a)
		}
		if !ok {
			missing = append(missing, a)
			continue
		}
		values[a] = v
	}
	return values, missing
}

func groupOf(u unit) (int, bool) {
	if u.node.Kind == metadata.AirHandler || u.node.Kind == metadata.Meter {
		return 0, false
	}
	raw, ok := u.equip.Attr(metadata.AttrGroup)
	if !ok && u.fallback != nil {
		raw, ok = u.fallback.Attr(metadata.AttrGroup)
	}
	if !ok {
		return 0, false
	}
	grp, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return grp, true
}

// registry renders the registry file of u. Points the source could not
// describe completely become a ledger registry warning; a device without
// any point is skipped.
func (g *Generator) registry(ctx context.Context, u unit) ([]byte, bool, error) {
	env := g.env
	n := u.node
	members := u.members
	if len(members) == 0 {
		members = []member{{id: u.equip.ID, kind: n.Kind}}
	}

	var rows []output.RegistryRow
	var incomplete []string
	for _, m := range members {
		pts, bad, err := g.lister.ListPoints(ctx, m.id, m.kind, u.scope)
		if err != nil {
			return nil, false, env.Skip(ctx, n, err.Error())
		}
		incomplete = append(incomplete, bad...)
		// Fixture points are named after their owning equipment, the same
		// owner load control uses, so both flavors agree on a point's name.
		kind, owner := m.kind, m.id
		rows = append(rows, output.RegistryRows(pts, func(p metadata.Point) string {
			return metadata.ExternalName(env.Source, p.Name, "", kind, owner)
		})...)
	}
	if len(incomplete) > 0 {
		env.Ledger.RegistryWarning(n.LedgerID, string(n.Kind), fmt.Sprintf(
			"Unable to find units, type, Bacnet Object Name and/or Bacnet Object Identifier. "+
				"Skipping registry config entry for: [%s]", strings.Join(incomplete, ", ")))
	}
	if len(rows) == 0 {
		return nil, false, env.Skip(ctx, n, "No points with complete BACnet details found for the registry file")
	}
	csv, err := output.RegistryCSV(rows)
	if err != nil {
		return nil, false, fmt.Errorf("rendering registry for %s: %w", n.LedgerID, err)
	}
	return csv, true, nil
}
