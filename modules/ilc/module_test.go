package ilc

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/engine"
	"github.com/vk/agentconfgen/internal/inmemorystore"
	"github.com/vk/agentconfgen/internal/ledger"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/output"
	"github.com/vk/agentconfgen/internal/pairwise"
	"github.com/vk/agentconfgen/internal/registry"
)

func configDoc() map[string]any {
	return map[string]any{
		"campus":   "PNNL",
		"building": "SEB",
		"point_meta_map": map[string]any{
			"vav":         map[string]any{"ZoneTemperature": "ZT", "ZoneAirFlow": "ZAF"},
			"lighting":    map[string]any{"Power": "LP"},
			"power_meter": map[string]any{PowerRole: "WBP"},
		},
		"config_template": map[string]any{
			"control_config": map[string]any{
				"vav": map[string]any{
					"device_topic":     "",
					"curtail_settings": map[string]any{"point": "ZoneTemperature", "curtail_method": "offset"},
					"device_status": map[string]any{"curtail": map[string]any{
						"condition":          []any{"ZoneAirFlow > 0.1"},
						"device_status_args": []any{"ZoneAirFlow"},
					}},
				},
				"lighting": map[string]any{
					"curtail_settings": map[string]any{"point": "Power"},
					"device_status": map[string]any{"curtail": map[string]any{
						"condition":          []any{"SUM(Power) > 0"},
						"device_status_args": []any{"Power"},
					}},
				},
			},
			"criteria_config": map[string]any{
				"vav": map[string]any{
					"zonetemperature-setpoint": map[string]any{
						"operation":      "1/(ZoneTemperature - 70)",
						"operation_type": "formula",
						"operation_args": map[string]any{"always": []any{"ZoneTemperature"}, "nc": []any{}},
					},
				},
				"lighting": map[string]any{
					"power": map[string]any{
						"operation":      "AVG(Power)",
						"operation_type": "formula",
						"operation_args": []any{"Power"},
					},
				},
			},
			"ilc_config": map[string]any{"agent_id": "ilc", "application_name": "Load Shed"},
		},
		"metadata": map[string]any{"connection_params": map[string]any{"uri": "neo4j://localhost:7687"}},
	}
}

func building() *metadata.Static {
	return &metadata.Static{
		Equipment: []metadata.Equipment{
			{ID: "ahu1", Name: "AHU-1", Kind: metadata.AirHandler},
			{ID: "vav1", Name: "VAV-1", Kind: metadata.TerminalUnit, Parent: "ahu1"},
			{ID: "vav2", Name: "VAV-2", Kind: metadata.TerminalUnit, Parent: "ahu1"},
			{ID: "vav3", Name: "VAV-3", Kind: metadata.TerminalUnit},
			{ID: "m1", Name: "Meter-1", Kind: metadata.Meter},
			{ID: "L1_B1", Kind: metadata.LightingCircuit, Parent: "Room-101"},
			{ID: "L2_B1", Kind: metadata.LightingCircuit, Parent: "Room-101"},
		},
		Points: map[string]map[string]string{
			"vav1":  {"ZoneTemperature": "ZT-1", "ZoneAirFlow": "ZAF-1"},
			"vav2":  {"ZoneTemperature": "ZT-2"},
			"vav3":  {"ZoneTemperature": "ZT-3", "ZoneAirFlow": "ZAF-3"},
			"m1":    {PowerRole: "WBP-1"},
			"L1_B1": {"Power": "LPW"},
		},
		Naming: func(raw, _ string, kind metadata.Kind, owner string) string {
			if !kind.RoomScoped() {
				return raw
			}
			prefix, _, _ := strings.Cut(owner, "_")
			return raw + "__" + prefix
		},
	}
}

func generate(t *testing.T, doc map[string]any, src metadata.Source) ([]output.Document, *ledger.Ledger, error) {
	t.Helper()
	m, err := config.Decode(doc)
	require.NoError(t, err)

	reg := registry.New()
	(&Module{}).Register(reg)
	l := ledger.New()
	docs, err := engine.Generate(context.Background(), reg, Name, registry.Deps{
		Model:     m,
		Source:    src,
		Ledger:    l,
		Nodes:     inmemorystore.New(),
		MetaField: "miniDis",
	})
	return docs, l, err
}

func find(t *testing.T, docs []output.Document, file string) output.Document {
	t.Helper()
	for _, d := range docs {
		if d.FileName == file {
			return d
		}
	}
	t.Fatalf("no document %q", file)
	return output.Document{}
}

func TestGenerate_DocumentOrder(t *testing.T) {
	t.Parallel()

	docs, _, err := generate(t, configDoc(), building())
	require.NoError(t, err)

	var names []string
	for _, d := range docs {
		names = append(names, d.FileName+"="+d.ConfigName)
		assert.Equal(t, "platform.ilc", d.Agent)
	}
	assert.Equal(t, []string{
		"lighting_criteria.config=lighting_criteria.config",
		"lighting_control.config=lighting_control.config",
		"vav_criteria.config=vav_criteria.config",
		"vav_control.config=vav_control.config",
		"lighting_criteria_matrix.json=lighting_criteria_matrix.json",
		"vav_criteria_matrix.json=vav_criteria_matrix.json",
		"ilc.config=config",
	}, names)
}

func TestGenerate_TerminalUnitDocuments(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := building()

	// --- Act ---
	docs, l, err := generate(t, configDoc(), src)

	// --- Assert ---
	require.NoError(t, err)

	control := func(topic, zt, zaf string) map[string]any {
		return map[string]any{
			"device_topic":     topic,
			"curtail_settings": map[string]any{"point": zt, "curtail_method": "offset"},
			"device_status": map[string]any{"curtail": map[string]any{
				"condition":          []any{zaf + " > 0.1"},
				"device_status_args": []any{zaf},
			}},
		}
	}
	wantControl := map[string]any{
		"AHU-1/VAV-1": map[string]any{"VAV-1": control("PNNL/SEB/AHU-1/VAV-1", "ZT-1", "ZAF-1")},
		"VAV-3":       map[string]any{"VAV-3": control("PNNL/SEB/VAV-3", "ZT-3", "ZAF-3")},
	}
	if diff := cmp.Diff(wantControl, find(t, docs, "vav_control.config").Body); diff != "" {
		t.Errorf("control mismatch (-want +got):\n%s", diff)
	}

	criteria := func(topic, zt string) map[string]any {
		return map[string]any{
			"device_topic": topic,
			"zonetemperature-setpoint": map[string]any{
				"operation":      "1/(" + zt + " - 70)",
				"operation_type": "formula",
				"operation_args": map[string]any{"always": []any{zt}, "nc": []any{}},
			},
		}
	}
	wantCriteria := map[string]any{
		"AHU-1/VAV-1": map[string]any{"VAV-1": criteria("PNNL/SEB/AHU-1/VAV-1", "ZT-1")},
		"VAV-3":       map[string]any{"VAV-3": criteria("PNNL/SEB/VAV-3", "ZT-3")},
		"mappers":     map[string]any{},
	}
	if diff := cmp.Diff(wantCriteria, find(t, docs, "vav_criteria.config").Body); diff != "" {
		t.Errorf("criteria mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []string{"vav2"}, l.IDs())
	rec, _ := l.Get("vav2")
	assert.Contains(t, rec.Error, "ZoneAirFlow(ZAF)")
	assert.Equal(t, "PNNL/SEB/AHU-1/VAV-2", rec.TopicName)
}

func TestGenerate_RoomAggregatesFixtures(t *testing.T) {
	t.Parallel()

	docs, _, err := generate(t, configDoc(), building())
	require.NoError(t, err)

	control := find(t, docs, "lighting_control.config").Body.(map[string]any)
	room := control["Room-101_lights"].(map[string]any)["Room-101_lights"].(map[string]any)
	assert.Equal(t, "PNNL/SEB/Room-101_lights", room["device_topic"])
	assert.Equal(t, map[string]any{"point": "LPW__L1"}, room["curtail_settings"])
	curtail := room["device_status"].(map[string]any)["curtail"].(map[string]any)
	assert.Equal(t, []any{"(LPW__L1 + LPW__L2) > 0"}, curtail["condition"])
	assert.Equal(t, []any{"LPW__L1"}, curtail["device_status_args"])

	criteria := find(t, docs, "lighting_criteria.config").Body.(map[string]any)
	power := criteria["Room-101_lights"].(map[string]any)["Room-101_lights"].(map[string]any)["power"].(map[string]any)
	assert.Equal(t, "(LPW__L1 + LPW__L2)/2", power["operation"])
	assert.Equal(t, []any{"LPW__L1"}, power["operation_args"])
}

func TestGenerate_AgentConfig(t *testing.T) {
	t.Parallel()

	docs, _, err := generate(t, configDoc(), building())
	require.NoError(t, err)

	cluster := func(t string) map[string]any {
		return map[string]any{
			"device_control_config":    "config://" + t + "_control.config",
			"device_criteria_config":   "config://" + t + "_criteria.config",
			"pairwise_criteria_config": "config://" + t + "_criteria_matrix.json",
			"cluster_priority":         json.Number("1.0"),
		}
	}
	want := map[string]any{
		"campus":               "PNNL",
		"building":             "SEB",
		"agent_id":             "ilc",
		"application_category": "Load Control",
		"application_name":     "Load Shed",
		"power_meter":          map[string]any{"device_topic": "PNNL/SEB/Meter-1", "point": "WBP-1"},
		"clusters":             []any{cluster("lighting"), cluster("vav")},
	}
	if diff := cmp.Diff(want, find(t, docs, "ilc.config").Body); diff != "" {
		t.Errorf("ilc.config mismatch (-want +got):\n%s", diff)
	}

	raw, _, err := pairwise.Load("", "vav")
	require.NoError(t, err)
	assert.Equal(t, raw, find(t, docs, "vav_criteria_matrix.json").Raw)
}

func TestGenerate_ConfiguredMeterSkipsLookup(t *testing.T) {
	t.Parallel()

	doc := configDoc()
	doc["building_power_meter"] = "PowerMeterAgent"
	doc["building_power_point"] = "Demand"
	src := building()
	src.Equipment = append(src.Equipment, metadata.Equipment{ID: "m2", Kind: metadata.Meter})

	docs, l, err := generate(t, doc, src)
	require.NoError(t, err)

	meter := find(t, docs, "ilc.config").Body.(map[string]any)["power_meter"]
	assert.Equal(t, map[string]any{"device_topic": "PNNL/SEB/PowerMeterAgent", "point": "Demand"}, meter)
	assert.False(t, l.Has(engine.MeterLedgerID))
}

func TestGenerate_AmbiguousMeter(t *testing.T) {
	t.Parallel()

	src := building()
	src.Equipment = append(src.Equipment, metadata.Equipment{ID: "m2", Kind: metadata.Meter})

	docs, l, err := generate(t, configDoc(), src)
	require.NoError(t, err)

	meter := find(t, docs, "ilc.config").Body.(map[string]any)["power_meter"]
	assert.Equal(t, map[string]any{"device_topic": "", "point": ""}, meter)
	rec, ok := l.Get(engine.MeterLedgerID)
	require.True(t, ok)
	assert.Equal(t, "building power meter", rec.Type)
	assert.True(t, strings.HasPrefix(rec.Error, "Unable to locate building power meter: Error: "))
	assert.Contains(t, rec.Error, "power_meter_id")
}

func TestGenerate_Fatal(t *testing.T) {
	t.Parallel()

	inconsistent := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inconsistent, pairwise.FileName("vav")),
		[]byte(`{"curtail": {"a": {"b": 9, "c": 0.111}, "b": {"c": 9}}}`), 0o644))

	testCases := []struct {
		name   string
		mutate func(doc map[string]any)
		want   error
	}{
		{
			name: "inconsistent pairwise criteria",
			mutate: func(doc map[string]any) {
				doc["pairwise_criteria_dir"] = inconsistent
			},
			want: pairwise.ErrInconsistent,
		},
		{
			name: "unknown device type",
			mutate: func(doc map[string]any) {
				tmpl := doc["config_template"].(map[string]any)
				tmpl["control_config"].(map[string]any)["chiller"] = map[string]any{"x": "y"}
			},
			want: ErrUnknownDeviceType,
		},
		{
			name: "missing criteria template",
			mutate: func(doc map[string]any) {
				tmpl := doc["config_template"].(map[string]any)
				delete(tmpl["criteria_config"].(map[string]any), "lighting")
			},
			want: ErrMissingTemplate,
		},
		{
			name: "missing section",
			mutate: func(doc map[string]any) {
				delete(doc["config_template"].(map[string]any), "ilc_config")
			},
			want: registry.ErrMissingSection,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			doc := configDoc()
			tc.mutate(doc)

			docs, _, err := generate(t, doc, building())

			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, docs)
		})
	}
}

func TestGenerate_SkipsPairwiseValidationWhenDisabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := []byte(`{"curtail": {"a": {"b": 9, "c": 0.111}, "b": {"c": 9}}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, pairwise.FileName("vav")), raw, 0o644))
	doc := configDoc()
	doc["pairwise_criteria_dir"] = dir
	doc["validate_pairwise_criteria"] = false

	docs, _, err := generate(t, doc, building())

	require.NoError(t, err)
	assert.Equal(t, raw, find(t, docs, "vav_criteria_matrix.json").Raw)
}
