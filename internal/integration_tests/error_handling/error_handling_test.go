package integration_tests

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/registry"
	"github.com/vk/agentconfgen/internal/testutil"
)

const points = `EquipClassID,EquipmentID,EquipName,ParentEquipID,PointName,PointClassID
1,10,AHU-1,,1001:analogInput:1,101
`

// Test for: invalid hcl is rejected before anything is generated
func TestErrorHandling_InvalidHCL_IsRejected(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	run := testutil.Run{
		Flavor: "economizer",
		Config: "main.hcl",
		Files: map[string]string{
			"main.hcl": `
config_template = {
  application = "economizer"
// Missing closing brace here
`,
		},
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, run)

	// --- Assert ---
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "failed to load configuration")
	assert.Nil(t, result.App)
	assert.NoDirExists(t, result.OutputDir)
}

// Test for: every fatal condition leaves the output directory untouched
func TestErrorHandling_FatalErrorsWriteNothing(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		flavor string
		config string
		target error
		want   string
	}{
		{
			name:   "missing metadata source",
			flavor: "economizer",
			config: `{"site_id": "PNNL.SEB", "config_template": {"a": 1}}`,
			target: config.ErrInvalid,
		},
		{
			name:   "missing points file",
			flavor: "economizer",
			config: `{"site_id": "PNNL.SEB", "config_template": {"a": 1},
			          "metadata": {"points_csv": "$TESTDIR/absent.csv"}}`,
			want: "failed to open metadata source",
		},
		{
			name:   "missing flavor section",
			flavor: "ilc",
			config: `{"site_id": "PNNL.SEB", "config_template": {"control_config": {"vav": {}}},
			          "metadata": {"points_csv": "$TESTDIR/points.csv"}}`,
			target: registry.ErrMissingSection,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			run := testutil.Run{
				Flavor: tc.flavor,
				Config: "run.json",
				Files:  map[string]string{"run.json": tc.config, "points.csv": points},
			}

			// --- Act ---
			result := testutil.RunIntegrationTest(t, run)

			// --- Assert ---
			require.Error(t, result.Err)
			if tc.target != nil {
				assert.ErrorIs(t, result.Err, tc.target)
			}
			if tc.want != "" {
				assert.Contains(t, result.Err.Error(), tc.want)
			}
			_, err := os.Stat(result.OutputDir)
			assert.True(t, os.IsNotExist(err), "no output may be written on a fatal error")
		})
	}
}
