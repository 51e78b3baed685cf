package ilc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vk/agentconfgen/internal/engine"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/pairwise"
	"github.com/vk/agentconfgen/internal/template"
)

// PowerRole is the meter role that feeds the agent's demand reading.
const PowerRole = "WholeBuildingPower"

const meterType = engine.MeterLedgerType

// agentConfig builds ilc.config: built-in defaults, overlaid by the
// ilc_config section, plus one cluster per device type and the building
// power meter.
func (g *Generator) agentConfig(ctx context.Context, types []string) (map[string]any, error) {
	model := g.env.Model
	cfg := map[string]any{
		"campus":               model.Campus.String(),
		"building":             model.Building.String(),
		"power_meter":          map[string]any{"device_topic": "", "point": ""},
		"application_category": "Load Control",
		"application_name":     "Intelligent Load Control",
		"clusters":             []any{},
	}
	if section, ok := model.Section(sectionILC); ok {
		for k, v := range section {
			cfg[k] = template.DeepCopy(v)
		}
	}

	clusters, _ := cfg["clusters"].([]any)
	for _, t := range types {
		clusters = append(clusters, map[string]any{
			"device_control_config":    "config://" + t + "_control.config",
			"device_criteria_config":   "config://" + t + "_criteria.config",
			"pairwise_criteria_config": "config://" + pairwise.OutputName(t),
			"cluster_priority":         json.Number("1.0"),
		})
	}
	cfg["clusters"] = clusters

	topic, point, err := g.powerMeter(ctx)
	if err != nil {
		return nil, err
	}
	meter, ok := cfg["power_meter"].(map[string]any)
	if !ok {
		meter = map[string]any{}
		cfg["power_meter"] = meter
	}
	meter["device_topic"] = topic
	meter["point"] = point
	return cfg, nil
}

// powerMeter returns the meter topic and power point. Configured values win;
// the metadata lookup only fills what is missing and records failures in the
// ledger.
func (g *Generator) powerMeter(ctx context.Context) (string, string, error) {
	env := g.env
	model := env.Model
	name := model.BuildingPowerMeter.String()
	point := model.BuildingPowerPoint.String()
	if name != "" && point != "" {
		return model.AgentTopicBase().Child(name).String(), point, nil
	}

	m, err := engine.FindMeter(ctx, env.Source, model.PowerMeterID.String())
	switch {
	case errors.Is(err, engine.ErrAmbiguousMeter) || errors.Is(err, engine.ErrMeterNotFound):
		env.Ledger.Fail(engine.MeterLedgerID, meterType, "Unable to locate building power meter: Error: "+err.Error())
	case err != nil:
		return "", "", err
	default:
		if name == "" {
			name = m.DisplayName()
		}
		if point == "" {
			point, err = g.powerPoint(ctx, m)
			if err != nil {
				return "", "", err
			}
		}
	}

	topic := ""
	if name != "" {
		topic = model.AgentTopicBase().Child(name).String()
	}
	return topic, point, nil
}

func (g *Generator) powerPoint(ctx context.Context, m metadata.Equipment) (string, error) {
	env := g.env
	res, err := env.Resolver.Resolve(ctx, m.ID, metadata.Meter, []string{PowerRole}, metadata.Scope{})
	if err != nil {
		env.Ledger.Fail(m.ID, meterType, err.Error())
		return "", nil
	}
	if p, ok := res.Points[PowerRole]; ok {
		if len(res.Defaulted) > 0 {
			env.Ledger.Warn(m.ID, meterType, fmt.Sprintf("Using default building power point %s", p))
		}
		return p, nil
	}
	env.Ledger.Fail(m.ID, meterType, fmt.Sprintf("Unable to locate building power point using the metadata %v",
		env.Model.Roles().Labels(metadata.Meter, PowerRole)))
	return "", nil
}
