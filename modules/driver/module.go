// Package driver generates platform driver device configurations: one
// document per air handler with its terminal units, one for the building
// meter, one room-level device per lit room and the driver agent config.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/engine"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/output"
	"github.com/vk/agentconfgen/internal/registry"
)

// Name is the flavor name.
const Name = "driver"

const (
	// AgentConfigFile holds the driver agent's own configuration.
	AgentConfigFile = "driver-agent-config.json"
	// LightsFile collects every room lighting device.
	LightsFile = "all_lights.json"
	// UnmappedFile collects terminal units without a known air handler.
	UnmappedFile = "unmapped_vavs.json"

	unmappedMessage = "Unable to find AHU that feeds vav"
)

// ErrNoPointLister is returned when registry files are requested from a
// source that cannot enumerate device points.
var ErrNoPointLister = errors.New("metadata source cannot list device points")

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the driver flavor.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFlavor(&registry.Flavor{
		Name:        Name,
		Description: "Platform driver device configurations and registry files",
		OutputDir:   "driver_configs",
		New: func(deps registry.Deps) registry.Generator {
			return &Generator{env: engine.NewEnv(deps)}
		},
	})
}

// Generator builds driver documents.
type Generator struct {
	env    *engine.Env
	vip    string
	lister metadata.PointLister
	// attrs are the equipment attributes the template references.
	attrs []string
	// groups counts emitted devices per scrape group.
	groups map[int]int
	docs   []output.Document
}

// Generate implements registry.Generator.
func (g *Generator) Generate(ctx context.Context) ([]output.Document, error) {
	logger := ctxlog.FromContext(ctx)
	env := g.env
	tmpl := env.Model.ConfigTemplate

	g.vip = env.Model.DriverVIP
	g.groups = make(map[int]int)
	g.docs = nil
	g.attrs = env.Templates.References(tmpl, metadata.AttributeRoles)
	if wantsRegistry(tmpl) {
		lister, ok := env.Source.(metadata.PointLister)
		if !ok {
			return nil, ErrNoPointLister
		}
		g.lister = lister
	}
	logger.Debug("Driver template inspected.", "attributes", g.attrs, "registry", g.lister != nil)

	known := append([]string{}, metadata.AttributeRoles...)
	for _, k := range metadata.Kinds {
		known = append(known, env.RoleNames(k)...)
	}
	env.Lint(ctx, Name, tmpl, known)

	if err := g.airside(ctx); err != nil {
		return nil, err
	}
	if err := g.meter(ctx); err != nil {
		return nil, err
	}
	if err := g.lighting(ctx); err != nil {
		return nil, err
	}
	g.docs = append(g.docs, g.agentConfig())
	return g.docs, nil
}

// airside emits one document per air handler holding the unit and the
// terminal units it feeds. Terminal units without a known air handler go to
// the errors directory.
func (g *Generator) airside(ctx context.Context) error {
	env := g.env
	ahus, err := env.Source.FindEquipment(ctx, metadata.AirHandler)
	if err != nil {
		return fmt.Errorf("listing air handlers: %w", err)
	}
	if err := metadata.CheckUnique(ahus); err != nil {
		return err
	}
	vavs, err := env.Source.FindEquipment(ctx, metadata.TerminalUnit)
	if err != nil {
		return fmt.Errorf("listing terminal units: %w", err)
	}
	if err := metadata.CheckUnique(vavs); err != nil {
		return err
	}

	fed := make(map[string][]metadata.Equipment)
	for _, grp := range metadata.GroupByParent(vavs) {
		fed[grp.Parent] = grp.Members
	}

	base := env.Model.DeviceTopicBase()
	for _, ahu := range ahus {
		name := ahu.DisplayName()
		ahuTopic := base.Child(name)
		entries, err := g.device(ctx, unit{
			node:  engine.Node{LedgerID: ahu.ID, Kind: metadata.AirHandler, Topic: ahuTopic},
			equip: ahu,
		})
		if err != nil {
			return err
		}
		for _, vav := range fed[ahu.ID] {
			es, err := g.device(ctx, unit{
				node:  engine.Node{LedgerID: vav.ID, Kind: metadata.TerminalUnit, Topic: ahuTopic.Child(vav.DisplayName())},
				equip: vav,
			})
			if err != nil {
				return err
			}
			entries = append(entries, es...)
		}
		delete(fed, ahu.ID)
		if len(entries) == 0 {
			continue
		}
		g.docs = append(g.docs, g.document(output.Configs, name+".json", "driver", entries))
	}

	var unmapped []any
	for _, vav := range vavs {
		if _, ok := fed[vav.Parent]; !ok {
			continue
		}
		n := engine.Node{LedgerID: vav.ID, Kind: metadata.TerminalUnit, Topic: base.Child(vav.DisplayName())}
		es, err := g.device(ctx, unit{node: n, equip: vav})
		if err != nil {
			return err
		}
		unmapped = append(unmapped, es...)
		if rec, ok := env.Ledger.Get(vav.ID); !ok || rec.Error == "" {
			env.Ledger.Fail(vav.ID, string(metadata.TerminalUnit), unmappedMessage)
			env.Ledger.Topic(vav.ID, n.Topic.String())
		}
	}
	if len(unmapped) > 0 {
		g.docs = append(g.docs, g.document(output.Errors, UnmappedFile, "unmapped", unmapped))
	}
	return nil
}

// meter emits the building meter document. Lookup failures are recorded in
// the ledger.
func (g *Generator) meter(ctx context.Context) error {
	env := g.env
	m, err := engine.FindMeter(ctx, env.Source, env.Model.PowerMeterID.String())
	if err != nil {
		if errors.Is(err, engine.ErrAmbiguousMeter) || errors.Is(err, engine.ErrMeterNotFound) {
			env.Ledger.Fail(engine.MeterLedgerID, engine.MeterLedgerType, err.Error())
			return nil
		}
		return err
	}
	name := m.DisplayName()
	entries, err := g.device(ctx, unit{
		node:  engine.Node{LedgerID: m.ID, Kind: metadata.Meter, Topic: env.Model.DeviceTopicBase().Child(name)},
		equip: m,
	})
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		g.docs = append(g.docs, g.document(output.Configs, name+".json", "driver", entries))
	}
	return nil
}

// agentConfig sizes the scrape interval so that the largest group is
// scraped within a minute.
func (g *Generator) agentConfig() output.Document {
	largest := 0
	for _, n := range g.groups {
		largest = max(largest, n)
	}
	if largest == 0 {
		largest = 1
	}
	interval := 60 / float64(largest+1)
	return output.Document{
		Dir:        output.Configs,
		FileName:   AgentConfigFile,
		Kind:       "driver-agent",
		Agent:      g.vip,
		ConfigName: "config",
		Body: map[string]any{
			g.vip: []any{map[string]any{
				"config-name": "config",
				"config":      map[string]any{"driver_scrape_interval": interval},
			}},
		},
	}
}

func (g *Generator) document(dir output.Dir, file, kind string, entries []any) output.Document {
	return output.Document{
		Dir:      dir,
		FileName: file,
		Kind:     kind,
		Agent:    g.vip,
		Body:     map[string]any{g.vip: entries},
	}
}

// wantsRegistry reports whether the template asks for registry files.
func wantsRegistry(tmpl map[string]any) bool {
	switch v := tmpl["registry_config"].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	}
	return true
}
