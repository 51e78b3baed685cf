package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/inmemorystore"
	"github.com/vk/agentconfgen/internal/ledger"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/node"
	"github.com/vk/agentconfgen/internal/output"
	"github.com/vk/agentconfgen/internal/registry"
	"github.com/vk/agentconfgen/internal/resolve"
	"github.com/vk/agentconfgen/internal/template"
	"github.com/vk/agentconfgen/internal/topic"
)

func testModel(t *testing.T) *config.Model {
	t.Helper()
	m, err := config.Decode(map[string]any{
		"campus":   "PNNL",
		"building": "SEB",
		"point_meta_map": map[string]any{
			"vav": map[string]any{"ZoneTemperature": "ZT"},
		},
		"config_template": map[string]any{"point": "ZoneTemperature"},
		"metadata":        map[string]any{"points_csv": "points.csv"},
	})
	require.NoError(t, err)
	return m
}

type generatorFunc func(ctx context.Context) ([]output.Document, error)

func (f generatorFunc) Generate(ctx context.Context) ([]output.Document, error) { return f(ctx) }

func TestGenerate_DefaultsLedgerAndStore(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var got registry.Deps
	reg := registry.New()
	reg.RegisterFlavor(&registry.Flavor{
		Name: "probe",
		New: func(deps registry.Deps) registry.Generator {
			got = deps
			return generatorFunc(func(context.Context) ([]output.Document, error) {
				return []output.Document{{FileName: "a.json"}}, nil
			})
		},
	})

	// --- Act ---
	docs, err := Generate(context.Background(), reg, "probe", registry.Deps{Model: testModel(t)})

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotNil(t, got.Ledger)
	assert.NotNil(t, got.Nodes)
}

func TestGenerate_Failures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	reg := registry.New()
	reg.RegisterFlavor(&registry.Flavor{
		Name:     "sections",
		Sections: []string{"control_config"},
		New: func(registry.Deps) registry.Generator {
			return generatorFunc(func(context.Context) ([]output.Document, error) { return nil, nil })
		},
	})
	reg.RegisterFlavor(&registry.Flavor{
		Name: "failing",
		New: func(registry.Deps) registry.Generator {
			return generatorFunc(func(context.Context) ([]output.Document, error) { return nil, boom })
		},
	})

	testCases := []struct {
		name   string
		flavor string
		want   error
	}{
		{name: "unknown flavor", flavor: "chiller", want: registry.ErrUnknownFlavor},
		{name: "missing section", flavor: "sections", want: registry.ErrMissingSection},
		{name: "generator error", flavor: "failing", want: boom},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Generate(context.Background(), reg, tc.flavor, registry.Deps{Model: testModel(t)})

			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func newEnv(t *testing.T) *Env {
	t.Helper()
	return NewEnv(registry.Deps{
		Model:     testModel(t),
		Source:    &metadata.Static{},
		Ledger:    ledger.New(),
		Nodes:     inmemorystore.New(),
		MetaField: "miniDis",
	})
}

func vavNode() Node {
	return Node{LedgerID: "vav1", Kind: metadata.TerminalUnit, Topic: topic.New("PNNL", "SEB", "VAV-1")}
}

func TestEnv_Lifecycle(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	env := newEnv(t)
	n := vavNode()

	// --- Act ---
	require.NoError(t, env.Begin(ctx, n))
	ok, err := env.Settle(ctx, n, &resolve.Resolution{Points: map[string]string{"ZoneTemperature": "ZT-1"}})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, env.Emit(ctx, n))

	// --- Assert ---
	status, err := env.Nodes.GetStatus(ctx, *n.Topic)
	require.NoError(t, err)
	assert.Equal(t, node.Emitted, status)
	assert.True(t, env.Ledger.Empty())
	assert.Error(t, env.Begin(ctx, n), "a device may only be tracked once")
}

func TestEnv_SettleIncompleteSkips(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	env := newEnv(t)
	n := vavNode()
	require.NoError(t, env.Begin(ctx, n))
	res := &resolve.Resolution{
		Points:    map[string]string{"ZoneTemperature": "ZT-1"},
		Missing:   []resolve.Missing{{Role: "ZoneAirFlow", Labels: []string{"ZAF"}}},
		Defaulted: []resolve.Missing{{Role: "ZoneTemperature", Labels: []string{"ZT"}}},
	}

	// --- Act ---
	ok, err := env.Settle(ctx, n, res)

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, ok)
	rec, found := env.Ledger.Get("vav1")
	require.True(t, found)
	assert.Equal(t, "vav", rec.Type)
	assert.Contains(t, rec.Error, "ZoneAirFlow(ZAF)")
	assert.Contains(t, rec.Warning, "default point names")
	assert.Equal(t, "PNNL/SEB/VAV-1", rec.TopicName)

	status, err := env.Nodes.GetStatus(ctx, *n.Topic)
	require.NoError(t, err)
	assert.Equal(t, node.SkippedMissingPoints, status)
}

func TestEnv_InstantiateUnresolvedRoleSkips(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx := context.Background()
	env := newEnv(t)
	n := vavNode()
	require.NoError(t, env.Begin(ctx, n))

	// --- Act ---
	out, ok, err := env.Instantiate(ctx, n, env.Model.ConfigTemplate, template.Binding{
		Declared: []string{"ZoneTemperature"},
	})

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, out)
	assert.True(t, env.Ledger.Has("vav1"))
}

func TestEnv_RoleNames(t *testing.T) {
	t.Parallel()

	env := newEnv(t)

	assert.Equal(t, []string{"ZoneTemperature"}, env.RoleNames(metadata.TerminalUnit))
}
