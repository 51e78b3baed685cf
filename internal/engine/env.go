package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/formula"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/node"
	"github.com/vk/agentconfgen/internal/registry"
	"github.com/vk/agentconfgen/internal/resolve"
	"github.com/vk/agentconfgen/internal/template"
	"github.com/vk/agentconfgen/internal/topic"
)

// Env is the per-run toolkit handed to flavor generators.
type Env struct {
	registry.Deps
	Resolver  *resolve.Resolver
	Templates *template.Instantiator
	fields    []string
}

// NewEnv wires a resolver and an instantiator around deps.
func NewEnv(deps registry.Deps) *Env {
	fields := template.DefaultExpressionFields
	if len(deps.Model.ExpressionFields) > 0 {
		fields = deps.Model.ExpressionFields
	}
	return &Env{
		Deps:      deps,
		Resolver:  resolve.New(deps.Source, deps.Model.Roles(), deps.Model.Defaults(), deps.Ledger),
		Templates: template.New(template.WithExpressionFields(fields...)),
		fields:    fields,
	}
}

// Node is one addressable device of a run.
type Node struct {
	// LedgerID keys the device's ledger entry.
	LedgerID string
	Kind     metadata.Kind
	Topic    *topic.Address
}

// Begin starts tracking n as Pending.
func (e *Env) Begin(ctx context.Context, n Node) error {
	return e.Nodes.Track(ctx, *n.Topic)
}

// Settle records res in the ledger and advances n. It reports whether the
// node may be emitted.
func (e *Env) Settle(ctx context.Context, n Node, res *resolve.Resolution) (bool, error) {
	if len(res.Defaulted) > 0 {
		e.Ledger.Warn(n.LedgerID, string(n.Kind), resolve.DefaultedMessage(e.MetaField, res.Defaulted))
	}
	if !res.Complete() {
		return false, e.Skip(ctx, n, resolve.MissingMessage(e.MetaField, res.Missing))
	}
	return true, e.Nodes.SetStatus(ctx, *n.Topic, node.PointsResolved)
}

// Skip fails n in the ledger with msg and marks it skipped.
func (e *Env) Skip(ctx context.Context, n Node, msg string) error {
	ctxlog.FromContext(ctx).Debug("Skipping device.", "device", n.LedgerID, "reason", msg)
	e.Ledger.Fail(n.LedgerID, string(n.Kind), msg)
	e.Ledger.Topic(n.LedgerID, n.Topic.String())
	return e.Nodes.SetStatus(ctx, *n.Topic, node.SkippedMissingPoints)
}

// Emit marks n emitted.
func (e *Env) Emit(ctx context.Context, n Node) error {
	return e.Nodes.SetStatus(ctx, *n.Topic, node.Emitted)
}

// Instantiate substitutes b into tmpl for n. A reference to an unresolved
// role skips the node; any other template error is fatal.
func (e *Env) Instantiate(ctx context.Context, n Node, tmpl any, b template.Binding) (any, bool, error) {
	out, err := e.Templates.Instantiate(tmpl, b)
	if err == nil {
		return out, true, nil
	}
	if errors.Is(err, template.ErrUnresolvedRole) {
		return nil, false, e.Skip(ctx, n, err.Error())
	}
	return nil, false, fmt.Errorf("instantiating template for %s: %w", n.LedgerID, err)
}

// Lint logs expression symbols in tmpl that are not among known.
func (e *Env) Lint(ctx context.Context, name string, tmpl any, known []string) {
	logger := ctxlog.FromContext(ctx)
	for _, f := range formula.Lint(tmpl, e.fields, known) {
		if f.Symbol == "" {
			logger.Warn("Template expression does not parse.", "template", name, "path", f.Path, "expr", f.Expr)
			continue
		}
		logger.Warn("Template expression references an unknown name.",
			"template", name, "path", f.Path, "symbol", f.Symbol)
	}
}

// RoleNames returns the roles declared for kind.
func (e *Env) RoleNames(kind metadata.Kind) []string {
	return e.Model.Roles().Roles(kind)
}
