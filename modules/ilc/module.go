// Package ilc generates Intelligent Load Control agent configurations:
// control and criteria documents per device type, the pairwise criteria
// matrices and the agent's ilc.config.
package ilc

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/engine"
	"github.com/vk/agentconfgen/internal/output"
	"github.com/vk/agentconfgen/internal/pairwise"
	"github.com/vk/agentconfgen/internal/registry"
)

// Name is the flavor name.
const Name = "ilc"

// Device types the control_config section may name.
const (
	TypeVAV      = "vav"
	TypeLighting = "lighting"
)

const (
	sectionControl  = "control_config"
	sectionCriteria = "criteria_config"
	sectionILC      = "ilc_config"
	sectionMappers  = "mapper_config"
)

var (
	// ErrUnknownDeviceType is returned for control_config entries other than
	// vav and lighting.
	ErrUnknownDeviceType = errors.New("unknown load control device type")
	// ErrMissingTemplate is returned when a device type has no control or
	// criteria template.
	ErrMissingTemplate = errors.New("missing device template")
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the ILC flavor.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFlavor(&registry.Flavor{
		Name:        Name,
		Description: "Intelligent Load Control agent configuration",
		OutputDir:   "ILC_configs",
		Sections:    []string{sectionControl, sectionCriteria, sectionILC},
		New: func(deps registry.Deps) registry.Generator {
			return &Generator{env: engine.NewEnv(deps)}
		},
	})
}

// Generator builds ILC documents.
type Generator struct {
	env *engine.Env
}

// Generate implements registry.Generator. Pairwise criteria are loaded and
// validated before any device is looked at.
func (g *Generator) Generate(ctx context.Context) ([]output.Document, error) {
	logger := ctxlog.FromContext(ctx)
	env := g.env
	model := env.Model
	vip := model.ILCAgentVIP

	control, _ := model.Section(sectionControl)
	criteria, _ := model.Section(sectionCriteria)
	types := make([]string, 0, len(control))
	for t := range control {
		types = append(types, t)
	}
	sort.Strings(types)

	matrices := make(map[string][]byte, len(types))
	for _, t := range types {
		if t != TypeVAV && t != TypeLighting {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownDeviceType, t, sectionControl)
		}
		raw, err := g.criteriaMatrix(ctx, t)
		if err != nil {
			return nil, err
		}
		matrices[t] = raw
	}

	var docs []output.Document
	for _, t := range types {
		ctl, ok := control[t].(map[string]any)
		if !ok || len(ctl) == 0 {
			return nil, fmt.Errorf("%w: no %s template for device type %q", ErrMissingTemplate, sectionControl, t)
		}
		crit, ok := criteria[t].(map[string]any)
		if !ok || len(crit) == 0 {
			return nil, fmt.Errorf("%w: no %s template for device type %q", ErrMissingTemplate, sectionCriteria, t)
		}
		tm := typeTemplates{control: ctl, criteria: withTopic(crit)}
		env.Lint(ctx, Name+"."+t, ctl, g.declared(t))
		env.Lint(ctx, Name+"."+t, crit, g.declared(t))

		var set *configSet
		var err error
		switch t {
		case TypeVAV:
			set, err = g.terminalUnits(ctx, tm)
		case TypeLighting:
			set, err = g.rooms(ctx, tm)
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("Load control devices configured.", "type", t, "count", len(set.control))

		if len(set.criteria) > 0 {
			mappers, _ := model.Section(sectionMappers)
			if mappers == nil {
				mappers = map[string]any{}
			}
			set.criteria["mappers"] = mappers
			docs = append(docs, g.config(t+"_criteria.config", t+"_criteria.config", "criteria", set.criteria))
		}
		if len(set.control) > 0 {
			docs = append(docs, g.config(t+"_control.config", t+"_control.config", "control", set.control))
		}
	}

	for _, t := range types {
		docs = append(docs, output.Document{
			Dir:        output.Configs,
			FileName:   pairwise.OutputName(t),
			Kind:       "pairwise",
			Agent:      vip,
			ConfigName: pairwise.OutputName(t),
			Raw:        matrices[t],
		})
	}

	ilc, err := g.agentConfig(ctx, types)
	if err != nil {
		return nil, err
	}
	docs = append(docs, g.config("ilc.config", "config", "ilc", ilc))
	return docs, nil
}

// criteriaMatrix loads the pairwise criteria for t and checks their
// consistency unless validation is turned off.
func (g *Generator) criteriaMatrix(ctx context.Context, t string) ([]byte, error) {
	model := g.env.Model
	raw, from, err := pairwise.Load(model.PairwiseCriteriaDir, t)
	if err != nil {
		return nil, err
	}
	if !model.ValidatePairwise() {
		return raw, nil
	}
	m, err := pairwise.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("pairwise criteria %s: %w", from, err)
	}
	cr, err := m.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating pairwise criteria %s: %w", from, err)
	}
	ctxlog.FromContext(ctx).Debug("Pairwise criteria are consistent.", "type", t, "source", from, "ratio", cr)
	return raw, nil
}

func (g *Generator) config(file, name, kind string, body any) output.Document {
	return output.Document{
		Dir:        output.Configs,
		FileName:   file,
		Kind:       kind,
		Agent:      g.env.Model.ILCAgentVIP,
		ConfigName: name,
		Body:       body,
	}
}

// withTopic returns crit with an empty device_topic the device fills in.
func withTopic(crit map[string]any) map[string]any {
	out := make(map[string]any, len(crit)+1)
	out["device_topic"] = ""
	for k, v := range crit {
		out[k] = v
	}
	return out
}
