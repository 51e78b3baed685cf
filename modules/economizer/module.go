// Package economizer generates one airside economizer agent configuration
// per air handler.
package economizer

import (
	"context"
	"fmt"

	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/engine"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/output"
	"github.com/vk/agentconfgen/internal/registry"
	"github.com/vk/agentconfgen/internal/template"
)

// Name is the flavor name.
const Name = "economizer"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the economizer flavor.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFlavor(&registry.Flavor{
		Name:        Name,
		Description: "Airside economizer agent configuration per air handler",
		OutputDir:   "economizer_configs",
		New: func(deps registry.Deps) registry.Generator {
			return &Generator{env: engine.NewEnv(deps)}
		},
	})
}

// Generator builds economizer documents. The whole config_template is the
// document; device and arguments.point_mapping are filled per air handler.
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
	logger.Debug("Air handlers found.", "count", len(ahus))

	roles := env.RoleNames(metadata.AirHandler)
	env.Lint(ctx, Name, model.ConfigTemplate, roles)
	prefix := model.VIPPrefix(Name)

	var docs []output.Document
	for _, ahu := range ahus {
		name := ahu.DisplayName()
		n := engine.Node{LedgerID: ahu.ID, Kind: metadata.AirHandler, Topic: model.AgentTopicBase().Child(name)}
		if err := env.Begin(ctx, n); err != nil {
			return nil, err
		}

		res, err := env.Resolver.Resolve(ctx, ahu.ID, metadata.AirHandler, roles, metadata.Scope{})
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

		body, ok, err := env.Instantiate(ctx, n, model.ConfigTemplate, template.Binding{Points: res.Points, Declared: roles})
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		doc := Document(body, model.Campus.String(), model.Building.String(), name, nil, res.Points)

		docs = append(docs, output.Document{
			Dir:      output.Configs,
			FileName: name + ".json",
			Kind:     Name,
			Agent:    prefix + "." + name,
			Body:     doc,
		})
		if err := env.Emit(ctx, n); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Document sets the device block and the point mapping of an instantiated
// air-side template. It is shared with the AirsideRCx flavor.
func Document(body any, campus, building, unit string, subdevices []string, points map[string]string) map[string]any {
	doc, _ := body.(map[string]any)
	if doc == nil {
		doc = map[string]any{}
	}
	subs := make([]any, 0, len(subdevices))
	for _, s := range subdevices {
		subs = append(subs, s)
	}
	doc["device"] = map[string]any{
		"campus":   campus,
		"building": building,
		"unit": map[string]any{
			unit: map[string]any{"subdevices": subs},
		},
	}

	args, _ := doc["arguments"].(map[string]any)
	if args == nil {
		args = map[string]any{}
		doc["arguments"] = args
	}
	mapping, _ := args["point_mapping"].(map[string]any)
	if mapping == nil {
		mapping = map[string]any{}
		args["point_mapping"] = mapping
	}
	for role, p := range points {
		mapping[role] = p
	}
	return doc
}
