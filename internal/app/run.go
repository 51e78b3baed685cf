package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/engine"
	"github.com/vk/agentconfgen/internal/inmemorystore"
	"github.com/vk/agentconfgen/internal/ledger"
	"github.com/vk/agentconfgen/internal/output"
	"github.com/vk/agentconfgen/internal/registry"
)

// ErrIncomplete is returned when some devices could not be configured. The
// documents that could be generated are written regardless.
var ErrIncomplete = errors.New("unable to generate configurations for all devices")

// Result describes a finished run.
type Result struct {
	OutputDir string
	*output.Result
	Ledger *ledger.Ledger
}

// Run generates the configured flavor and writes its documents. Nothing is
// written when generation fails.
func (a *App) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)
	start := time.Now()
	logger.Debug("App.Run method started.", "flavor", a.config.Flavor)

	f, err := a.registry.Lookup(a.config.Flavor)
	if err != nil {
		return nil, err
	}
	outDir := a.config.OutputDir
	if outDir == "" {
		outDir = a.model.ResolveOutputDir(f.OutputDir)
	}

	src, kind, closeSource, err := openSource(ctx, a.model)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata source: %w", err)
	}
	defer func() {
		if err := closeSource(ctx); err != nil {
			logger.Warn("Closing metadata source failed.", "error", err)
		}
	}()

	l := ledger.New()
	docs, err := engine.Generate(ctx, a.registry, f.Name, registry.Deps{
		Model:     a.model,
		Source:    src,
		Ledger:    l,
		Nodes:     inmemorystore.New(),
		MetaField: a.model.MetaField(kind),
	})
	if err != nil {
		return nil, err
	}

	w := output.NewFSWriter(outDir)
	res, err := output.Persist(ctx, w, docs, l)
	if err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	result := &Result{OutputDir: w.Root(), Result: res, Ledger: l}

	logger.Info("Generation run finished.",
		"flavor", f.Name,
		"output_dir", result.OutputDir,
		"files", len(res.Written),
		"elapsed", time.Since(start),
	)
	if !l.Empty() {
		return result, fmt.Errorf("%w. Please see %s for details", ErrIncomplete, res.LedgerPath)
	}
	return result, nil
}
