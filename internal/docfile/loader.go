package docfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Extensions handled by this loader.
var Extensions = []string{".json", ".jsonc", ".yaml", ".yml"}

// Loader reads JSON and YAML run configurations.
type Loader struct{}

// NewLoader creates a new document loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Supports reports whether path has an extension this loader reads.
func Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var m *config.Model
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		logger.Debug("Decoding YAML configuration.", "path", path)
		m, err = decodeYAML(raw)
	case ".json", ".jsonc":
		logger.Debug("Decoding JSON configuration.", "path", path)
		m, err = decodeJSON(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported configuration extension %q", config.ErrInvalid, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func decodeJSON(raw []byte) (*config.Model, error) {
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	return config.DecodeJSON(std)
}

func decodeYAML(raw []byte) (*config.Model, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", config.ErrInvalid)
	}
	return config.Decode(doc)
}
