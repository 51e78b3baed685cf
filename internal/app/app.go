package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/docfile"
	"github.com/vk/agentconfgen/internal/hcl"
	"github.com/vk/agentconfgen/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
	config   *Config
}

// LoaderFor picks the run configuration loader for path: JSON and YAML
// files by extension, HCL for .hcl files and directories.
func LoaderFor(path string) config.Loader {
	if docfile.Supports(path) {
		return docfile.NewLoader()
	}
	return hcl.NewLoader()
}

// NewApp is the constructor for the main application. It loads the run
// configuration and registers the flavors, failing on an unknown flavor
// before anything is read from the metadata source.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := NewRegistry(modules...)
	logger.Debug("All flavors registered.", "flavors", reg.Names())
	if _, err := reg.Lookup(appConfig.Flavor); err != nil {
		return nil, err
	}

	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if model.PairwiseCriteriaDir != "" && !filepath.IsAbs(model.PairwiseCriteriaDir) {
		model.PairwiseCriteriaDir = relativeTo(appConfig.ConfigPath, model.PairwiseCriteriaDir)
	}
	logger.Debug("Configuration loaded into unified model.", "path", appConfig.ConfigPath)

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    model,
		config:   appConfig,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Model returns the loaded run configuration.
func (a *App) Model() *config.Model {
	return a.model
}

// relativeTo resolves a path from the run configuration against the
// configuration's own directory when it exists there.
func relativeTo(configPath, p string) string {
	base := configPath
	if fi, err := os.Stat(configPath); err == nil && !fi.IsDir() {
		base = filepath.Dir(configPath)
	}
	candidate := filepath.Join(base, p)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return p
}
