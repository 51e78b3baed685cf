package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/output"
)

type noopGenerator struct{}

func (noopGenerator) Generate(context.Context) ([]output.Document, error) { return nil, nil }

func flavor(name string, sections ...string) *Flavor {
	return &Flavor{
		Name:     name,
		Sections: sections,
		New:      func(Deps) Generator { return noopGenerator{} },
	}
}

func TestRegistry_LookupAndNames(t *testing.T) {
	t.Parallel()

	r := New()
	r.RegisterFlavor(flavor("ilc"))
	r.RegisterFlavor(flavor("driver"))

	assert.Equal(t, []string{"driver", "ilc"}, r.Names())
	f, err := r.Lookup("driver")
	require.NoError(t, err)
	assert.Equal(t, "driver", f.Name)

	_, err = r.Lookup("chiller")
	assert.ErrorIs(t, err, ErrUnknownFlavor)
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	t.Parallel()

	r := New()
	r.RegisterFlavor(flavor("driver"))
	assert.Panics(t, func() { r.RegisterFlavor(flavor("driver")) })
}

func TestFlavor_Validate(t *testing.T) {
	t.Parallel()

	f := flavor("ilc", "control_config", "criteria_config")
	m := &config.Model{ConfigTemplate: map[string]any{
		"control_config":  map[string]any{"vav": map[string]any{}},
		"criteria_config": map[string]any{},
	}}

	err := f.Validate(m)
	require.ErrorIs(t, err, ErrMissingSection)
	assert.Contains(t, err.Error(), "criteria_config")

	m.ConfigTemplate["criteria_config"] = map[string]any{"vav": map[string]any{}}
	assert.NoError(t, f.Validate(m))
}
