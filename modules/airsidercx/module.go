// Package airsidercx generates AirsideRCx agent configurations: one per air
// handler that feeds terminal units, listing the terminal units whose points
// all resolve.
package airsidercx

import (
	"context"
	"fmt"

	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/engine"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/output"
	"github.com/vk/agentconfgen/internal/registry"
	"github.com/vk/agentconfgen/internal/resolve"
	"github.com/vk/agentconfgen/internal/template"
	"github.com/vk/agentconfgen/modules/economizer"
)

// Name is the flavor name.
const Name = "airsidercx"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the AirsideRCx flavor.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFlavor(&registry.Flavor{
		Name:        Name,
		Description: "AirsideRCx agent configuration per air handler and its terminal units",
		OutputDir:   "airsidercx_configs",
		New: func(deps registry.Deps) registry.Generator {
			return &Generator{env: engine.NewEnv(deps)}
		},
	})
}

// Generator builds AirsideRCx documents.
type Generator struct {
	env *engine.Env
}

// Generate implements registry.Generator.
func (g *Generator) Generate(ctx context.Context) ([]output.Document, error) {
	logger := ctxlog.FromContext(ctx)
	env := g.env
	model := env.Model

	ahus, err := env.Source.FindEquipment(ctx, metadata.AirHandler)
	if err != nil {
		return nil, fmt.Errorf("listing air handlers: %w", err)
	}
	if err := metadata.CheckUnique(ahus); err != nil {
		return nil, err
	}
	vavs, err := env.Source.FindEquipment(ctx, metadata.TerminalUnit)
	if err != nil {
		return nil, fmt.Errorf("listing terminal units: %w", err)
	}
	if err := metadata.CheckUnique(vavs); err != nil {
		return nil, err
	}

	fed := make(map[string][]metadata.Equipment)
	for _, grp := range metadata.GroupByParent(vavs) {
		if grp.Parent == metadata.NoParent {
			logger.Debug("Terminal units without an air handler are not analyzed.", "count", len(grp.Members))
			continue
		}
		fed[grp.Parent] = grp.Members
	}

	ahuRoles := env.RoleNames(metadata.AirHandler)
	// terminal unit roles only come from an explicit table; a flat map
	// describes the air handler
	var vavRoles []string
	if _, ok := model.Roles()[metadata.TerminalUnit]; ok {
		vavRoles = env.RoleNames(metadata.TerminalUnit)
	}
	declared := append(append([]string{}, ahuRoles...), vavRoles...)
	env.Lint(ctx, Name, model.ConfigTemplate, declared)
	prefix := model.VIPPrefix(Name)

	var docs []output.Document
	for _, ahu := range ahus {
		members := fed[ahu.ID]
		if len(members) == 0 {
			logger.Debug("Air handler feeds no terminal units.", "ahu", ahu.ID)
			continue
		}
		doc, err := g.unit(ctx, ahu, members, ahuRoles, vavRoles, declared)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		doc.Agent = prefix + "." + ahu.DisplayName()
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (g *Generator) unit(ctx context.Context, ahu metadata.Equipment, members []metadata.Equipment, ahuRoles, vavRoles, declared []string) (*output.Document, error) {
	env := g.env
	model := env.Model
	name := ahu.DisplayName()
	ahuTopic := model.AgentTopicBase().Child(name)
	n := engine.Node{LedgerID: ahu.ID, Kind: metadata.AirHandler, Topic: ahuTopic}
	if err := env.Begin(ctx, n); err != nil {
		return nil, err
	}

	res, ok, err := g.resolve(ctx, n, ahu.ID, ahuRoles)
	if err != nil || !ok {
		return nil, err
	}

	var subdevices []string
	var resolved []engine.Node
	var vavPoints map[string]string
	for _, vav := range members {
		vn := engine.Node{LedgerID: vav.ID, Kind: metadata.TerminalUnit, Topic: ahuTopic.Child(vav.DisplayName())}
		if err := env.Begin(ctx, vn); err != nil {
			return nil, err
		}
		vres, ok, err := g.resolve(ctx, vn, vav.ID, vavRoles)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if vavPoints == nil {
			vavPoints = vres.Points
		}
		subdevices = append(subdevices, vav.DisplayName())
		resolved = append(resolved, vn)
	}
	if len(subdevices) == 0 {
		return nil, env.Skip(ctx, n, "No terminal unit fed by this air handler has all of its points")
	}

	points := make(map[string]string, len(res.Points)+len(vavPoints))
	for k, v := range vavPoints {
		points[k] = v
	}
	for k, v := range res.Points {
		points[k] = v
	}

	body, ok, err := env.Instantiate(ctx, n, model.ConfigTemplate, template.Binding{Points: points, Declared: declared})
	if err != nil {
		return nil, err
	}
	if !ok {
		// terminal units are only emitted as part of their air handler
		for _, vn := range resolved {
			if err := env.Skip(ctx, vn, "Air handler "+ahu.ID+" was skipped"); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	doc := economizer.Document(body, model.Campus.String(), model.Building.String(), name, subdevices, points)

	if err := env.Emit(ctx, n); err != nil {
		return nil, err
	}
	for _, vn := range resolved {
		if err := env.Emit(ctx, vn); err != nil {
			return nil, err
		}
	}
	return &output.Document{Dir: output.Configs, FileName: name + ".json", Kind: Name, Body: doc}, nil
}

// resolve resolves roles for one node and settles it. Source errors skip
// the node.
func (g *Generator) resolve(ctx context.Context, n engine.Node, equipID string, roles []string) (*resolve.Resolution, bool, error) {
	res, err := g.env.Resolver.Resolve(ctx, equipID, n.Kind, roles, metadata.Scope{})
	if err != nil {
		return nil, false, g.env.Skip(ctx, n, err.Error())
	}
	ok, err := g.env.Settle(ctx, n, res)
	return res, ok, err
}
