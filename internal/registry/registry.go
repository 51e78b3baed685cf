package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/ledger"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/nodestore"
	"github.com/vk/agentconfgen/internal/output"
)

var (
	// ErrUnknownFlavor is returned by Lookup for unregistered names.
	ErrUnknownFlavor = errors.New("unknown flavor")
	// ErrMissingSection is returned when config_template lacks a section the
	// flavor requires.
	ErrMissingSection = errors.New("missing config_template section")
)

// Module is the interface that all flavor modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Deps is everything a generator needs for one run.
type Deps struct {
	Model  *config.Model
	Source metadata.Source
	Ledger *ledger.Ledger
	Nodes  nodestore.Store
	// MetaField is the effective point meta field, quoted in ledger messages.
	MetaField string
}

// Generator produces every document of one flavor. It returns an error only
// for conditions that invalidate the whole run; per-device problems go to
// the ledger.
type Generator interface {
	Generate(ctx context.Context) ([]output.Document, error)
}

// Flavor describes one agent configuration flavor.
type Flavor struct {
	Name        string
	Description string
	// OutputDir is the default output directory suffix, used as
	// {building}_{OutputDir} when output_dir is not configured.
	OutputDir string
	// Sections lists required config_template keys. An empty entry means
	// the whole template is the document and only needs to be non-empty.
	Sections []string
	New      func(deps Deps) Generator
}

// Validate checks that m carries every section f requires.
func (f *Flavor) Validate(m *config.Model) error {
	var missing []string
	for _, s := range f.Sections {
		v, ok := m.ConfigTemplate[s]
		if !ok || v == nil {
			missing = append(missing, s)
			continue
		}
		if sec, isMap := v.(map[string]any); isMap && len(sec) == 0 {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s needs %v", ErrMissingSection, f.Name, missing)
	}
	return nil
}

// Registry holds the registered flavors for a single application instance.
type Registry struct {
	flavors map[string]*Flavor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{flavors: make(map[string]*Flavor)}
}

// RegisterFlavor adds f. Registering a name twice is a programmer error.
func (r *Registry) RegisterFlavor(f *Flavor) {
	if f == nil || f.Name == "" || f.New == nil {
		panic("registry: incomplete flavor registration")
	}
	if _, dup := r.flavors[f.Name]; dup {
		panic(fmt.Sprintf("registry: flavor %q registered twice", f.Name))
	}
	r.flavors[f.Name] = f
}

// Lookup returns the flavor registered under name.
func (r *Registry) Lookup(name string) (*Flavor, error) {
	f, ok := r.flavors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownFlavor, name, r.Names())
	}
	return f, nil
}

// Names returns the registered flavor names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.flavors))
	for n := range r.flavors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Flavors returns the registered flavors ordered by name.
func (r *Registry) Flavors() []*Flavor {
	out := make([]*Flavor, 0, len(r.flavors))
	for _, n := range r.Names() {
		out = append(out, r.flavors[n])
	}
	return out
}
