// Package resolve turns logical point roles into concrete point names for
// one equipment node: metadata source first, configured default second.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/ledger"
	"github.com/vk/agentconfgen/internal/metadata"
)

// Missing describes a role together with the source labels it was looked up by.
type Missing struct {
	Role   string
	Labels []string
}

// String renders the role as `Role(label, label)`.
func (m Missing) String() string {
	return fmt.Sprintf("%s(%s)", m.Role, strings.Join(m.Labels, ", "))
}

// Resolution is the outcome of resolving a role list for one node.
type Resolution struct {
	Points    map[string]string
	Missing   []Missing
	Defaulted []Missing
}

// Complete reports whether every requested role has a point.
func (r *Resolution) Complete() bool { return len(r.Missing) == 0 }

// Roles returns the resolved role names.
func (r *Resolution) Roles() []string {
	out := make([]string, 0, len(r.Points))
	for role := range r.Points {
		out = append(out, role)
	}
	return out
}

// Merge folds other into r. Used when a room document combines fixture and
// detector roles.
func (r *Resolution) Merge(other *Resolution) {
	for k, v := range other.Points {
		r.Points[k] = v
	}
	r.Missing = append(r.Missing, other.Missing...)
	r.Defaulted = append(r.Defaulted, other.Defaulted...)
}

// Resolver resolves roles against a Source and a default table, flagging
// incomplete nodes in the ledger.
type Resolver struct {
	src      metadata.Source
	roles    metadata.RoleMap
	defaults metadata.Defaults
	ledger   *ledger.Ledger
}

// New creates a Resolver.
func New(src metadata.Source, roles metadata.RoleMap, defaults metadata.Defaults, l *ledger.Ledger) *Resolver {
	return &Resolver{src: src, roles: roles, defaults: defaults, ledger: l}
}

// Resolve looks up every role in order without stopping at the first gap,
// so the ledger learns the complete missing set in one pass. Source errors
// abort the node and are returned to the caller.
func (r *Resolver) Resolve(ctx context.Context, equipID string, kind metadata.Kind, roles []string, scope metadata.Scope) (*Resolution, error) {
	return r.ResolveFor(ctx, equipID, equipID, kind, roles, scope)
}

// ResolveFor is Resolve with gaps flagged under ledgerID, for nodes whose
// ledger entry is not the equipment itself, e.g. a room built from its
// first fixture.
func (r *Resolver) ResolveFor(ctx context.Context, ledgerID, equipID string, kind metadata.Kind, roles []string, scope metadata.Scope) (*Resolution, error) {
	logger := ctxlog.FromContext(ctx)
	res := &Resolution{Points: make(map[string]string, len(roles))}

	for _, role := range roles {
		point, ok, err := r.src.FindPoint(ctx, equipID, kind, role, scope)
		if err != nil {
			return nil, fmt.Errorf("looking up %s for %s %q: %w", role, kind, equipID, err)
		}
		if ok {
			res.Points[role] = point
			continue
		}

		desc := Missing{Role: role, Labels: r.roles.Labels(kind, role)}
		if def, ok := r.defaults.Lookup(kind, role); ok {
			logger.Debug("Using default point name.", "equipment", equipID, "role", role, "point", def)
			res.Points[role] = def
			res.Defaulted = append(res.Defaulted, desc)
			continue
		}

		logger.Debug("Role unresolved.", "equipment", equipID, "role", role)
		res.Missing = append(res.Missing, desc)
	}

	if len(res.Missing) > 0 {
		r.ledger.Flag(ledgerID, string(kind))
	}
	return res, nil
}

// MissingMessage is the ledger error text for unresolved roles.
func MissingMessage(field string, missing []Missing) string {
	return fmt.Sprintf("Unable to find point(s) using metadata field %s. Missing points and their configured mapping: %s",
		field, list(missing))
}

// DefaultedMessage is the ledger warning text for roles filled from defaults.
func DefaultedMessage(field string, defaulted []Missing) string {
	return fmt.Sprintf("Unable to find points using metadata field %s but found default point names. Using default point names. Missing points and their configured mapping: %s",
		field, list(defaulted))
}

func list(ms []Missing) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
