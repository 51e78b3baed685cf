package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/inmemorystore"
	"github.com/vk/agentconfgen/internal/ledger"
	"github.com/vk/agentconfgen/internal/node"
	"github.com/vk/agentconfgen/internal/output"
	"github.com/vk/agentconfgen/internal/registry"
)

// Generate runs the named flavor and returns its documents in write order.
func Generate(ctx context.Context, reg *registry.Registry, name string, deps registry.Deps) ([]output.Document, error) {
	logger := ctxlog.FromContext(ctx).With("flavor", name)
	ctx = ctxlog.WithLogger(ctx, logger)

	f, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(deps.Model); err != nil {
		return nil, err
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.New()
	}
	if deps.Nodes == nil {
		deps.Nodes = inmemorystore.New()
	}

	start := time.Now()
	logger.Debug("Generation started.")
	docs, err := f.New(deps).Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	summary := deps.Nodes.Summary(ctx)
	logger.Info("Generation finished.",
		"documents", len(docs),
		"emitted", summary[node.Emitted],
		"skipped", summary[node.SkippedMissingPoints],
		"ledger_entries", deps.Ledger.Len(),
		"duration", time.Since(start),
	)
	return docs, nil
}
