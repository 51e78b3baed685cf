package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/docfile"
	"github.com/vk/agentconfgen/internal/hcl"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/registry"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		level, format string
		debugShown    bool
		want          string
	}{
		{level: "debug", format: "text", debugShown: true, want: "app=agentconfgen"},
		{level: "info", format: "json", want: `"app":"agentconfgen"`},
		{level: "bogus", format: "text", want: "level=INFO"},
	}

	for _, tc := range testCases {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			t.Parallel()
			out := &bytes.Buffer{}

			logger := newLogger(tc.level, tc.format, out)
			logger.Debug("hidden unless debug")
			logger.Info("visible")

			assert.Equal(t, tc.debugShown, bytes.Contains(out.Bytes(), []byte("hidden unless debug")))
			assert.Contains(t, out.String(), tc.want)
			assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
		})
	}
}

func TestLoaderFor(t *testing.T) {
	t.Parallel()

	assert.IsType(t, docfile.NewLoader(), LoaderFor("site.yaml"))
	assert.IsType(t, docfile.NewLoader(), LoaderFor("site.jsonc"))
	assert.IsType(t, hcl.NewLoader(), LoaderFor("site.hcl"))
	assert.IsType(t, hcl.NewLoader(), LoaderFor("configs"))
}

func TestRelativeTo(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	cfg := filepath.Join(dir, "ilc.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "criteria"), 0o755))

	// --- Act / Assert ---
	assert.Equal(t, filepath.Join(dir, "criteria"), relativeTo(cfg, "criteria"))
	assert.Equal(t, filepath.Join(dir, "criteria"), relativeTo(dir, "criteria"))
	assert.Equal(t, "elsewhere", relativeTo(cfg, "elsewhere"), "paths that do not exist beside the configuration are kept")
}

func TestEquipmentClasses(t *testing.T) {
	t.Parallel()

	got, err := equipmentClasses(map[string][]config.Text{
		"ahu": {"1", "167.0"},
		"vav": {"21"},
	})
	require.NoError(t, err)
	want := map[metadata.Kind][]string{
		metadata.AirHandler:   {"1", "167"},
		metadata.TerminalUnit: {"21"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("equipment classes mismatch (-want +got):\n%s", diff)
	}

	_, err = equipmentClasses(map[string][]config.Text{"chiller": {"9"}})
	assert.Error(t, err)
}

func TestNewApp_UnknownFlavorFailsBeforeLoading(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	cfg := &Config{ConfigPath: filepath.Join(t.TempDir(), "absent.json"), Flavor: "chiller", LogLevel: "info"}

	// --- Act ---
	_, err := NewApp(&bytes.Buffer{}, cfg, docfile.NewLoader())

	// --- Assert ---
	require.ErrorIs(t, err, registry.ErrUnknownFlavor)
}

func TestRun_CustomEquipmentClasses(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "points.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(`EquipClassID,EquipmentID,EquipName,ParentEquipID,PointName,PointClassID
900,10,RTU-1,,1001:analogInput:1,101
1,11,AHU-1,,1101:analogInput:1,101
`), 0o600))
	cfgPath := filepath.Join(dir, "economizer.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
site_id: PNNL.SEB
point_meta_map:
  ahu:
    OutdoorAirTemperature: 101
config_template:
  application: economizer
metadata:
  points_csv: `+csvPath+`
  equipment_classes:
    ahu: [900]
`), 0o600))
	outDir := filepath.Join(dir, "out")
	cfg, err := NewConfig(Config{ConfigPath: cfgPath, Flavor: "economizer", OutputDir: outDir, LogLevel: "error"})
	require.NoError(t, err)
	a, err := NewApp(&bytes.Buffer{}, cfg, LoaderFor(cfgPath))
	require.NoError(t, err)

	// --- Act ---
	res, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, outDir, res.OutputDir)
	assert.FileExists(t, filepath.Join(outDir, "configs", "10_RTU-1.json"))
	assert.NoFileExists(t, filepath.Join(outDir, "configs", "11_AHU-1.json"))
	assert.Equal(t, 1, res.Manifest.Len())
	assert.Empty(t, res.LedgerPath)
}

func TestNewConfig_RequiresPathAndFlavor(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(Config{Flavor: "driver"})
	assert.Error(t, err)
	_, err = NewConfig(Config{ConfigPath: "x.json"})
	assert.Error(t, err)
}
