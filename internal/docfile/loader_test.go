package docfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/metadata"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_JSONWithComments(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := write(t, "driver.json", `{
  // building identity
  "site_id": "PNNL.SEB",
  "power_meter_id": 12,
  "point_meta_map": {"ZoneTemperature": "ZNT",},
  "config_template": {"driver_config": {"device_address": "DeviceAddress"}},
  "metadata": {"points_csv": "points.csv"},
}`)

	// --- Act ---
	m, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "12", m.PowerMeterID.String())
	assert.Equal(t, []string{"ZNT"}, m.Roles().Labels(metadata.TerminalUnit, "ZoneTemperature"))
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := write(t, "ilc.yaml", `
site_id: PNNL.SEB
building_power_meter: meter-1
building_power_point: WholeBuildingPower
point_meta_map:
  vav:
    ZoneTemperature: [ZNT, zone_temp]
point_default_map:
  ZoneCoolingTemperatureSetPoint: ZCSP
config_template:
  ilc_config:
    demand_limit: 100
metadata:
  points_csv: points.csv
`)

	// --- Act ---
	m, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "meter-1", m.BuildingPowerMeter.String())
	assert.Equal(t, []string{"ZNT", "zone_temp"}, m.Roles().Labels(metadata.TerminalUnit, "ZoneTemperature"))
	def, ok := m.Defaults().Lookup(metadata.TerminalUnit, "ZoneCoolingTemperatureSetPoint")
	require.True(t, ok)
	assert.Equal(t, "ZCSP", def)
}

func TestLoad_RejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	path := write(t, "cfg.toml", `site_id = "x"`)
	_, err := NewLoader().Load(context.Background(), path)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestSupports(t *testing.T) {
	t.Parallel()

	assert.True(t, Supports("a/b.YAML"))
	assert.True(t, Supports("c.jsonc"))
	assert.False(t, Supports("d.hcl"))
}
