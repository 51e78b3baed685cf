package app

import (
	"context"
	"fmt"

	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/metadata/graph"
	"github.com/vk/agentconfgen/internal/metadata/tabular"
)

// openSource builds the metadata source the model selects. The returned
// closer releases its connection, if any.
func openSource(ctx context.Context, m *config.Model) (metadata.Source, config.SourceKind, func(context.Context) error, error) {
	logger := ctxlog.FromContext(ctx)
	noop := func(context.Context) error { return nil }

	kind, err := m.Metadata.Source()
	if err != nil {
		return nil, "", noop, err
	}
	field := m.MetaField(kind)
	md := m.Metadata

	switch kind {
	case config.SourceCSV, config.SourceSQLite:
		var records []tabular.Record
		if kind == config.SourceCSV {
			records, err = tabular.ReadCSVFile(md.PointsCSV)
		} else {
			table := md.PointsTable
			if table == "" {
				table = tabular.DefaultDBTable
			}
			records, err = tabular.ReadSQLite(ctx, md.PointsDB, table)
		}
		if err != nil {
			return nil, kind, noop, err
		}
		classes, err := equipmentClasses(md.EquipmentClasses)
		if err != nil {
			return nil, kind, noop, err
		}
		src, err := tabular.New(records, tabular.Options{
			Classes:         classes,
			PowerPointClass: md.PowerPointClass.String(),
			MeterID:         m.PowerMeterID.String(),
			MetaField:       field,
			Roles:           m.Roles(),
		})
		if err != nil {
			return nil, kind, noop, err
		}
		logger.Debug("Tabular metadata loaded.", "source", kind, "records", len(records))
		return src, kind, noop, nil
	}

	cp := md.ConnectionParams
	labels := make(map[metadata.Kind]string, len(md.Labels))
	for k, v := range md.Labels {
		kk, err := metadata.ParseKind(k)
		if err != nil {
			return nil, kind, noop, fmt.Errorf("metadata.labels: %w", err)
		}
		labels[kk] = v
	}
	conn, err := graph.Dial(ctx, cp.URI, cp.User, cp.Password, cp.Database)
	if err != nil {
		return nil, kind, noop, err
	}
	src, err := graph.New(conn, graph.Options{Labels: labels, MetaField: field, Roles: m.Roles()})
	if err != nil {
		_ = conn.Close(ctx)
		return nil, kind, noop, err
	}
	logger.Debug("Connected to graph metadata.", "uri", cp.URI)
	return src, kind, conn.Close, nil
}

func equipmentClasses(raw map[string][]config.Text) (map[metadata.Kind][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[metadata.Kind][]string, len(raw))
	for k, ids := range raw {
		kind, err := metadata.ParseKind(k)
		if err != nil {
			return nil, fmt.Errorf("metadata.equipment_classes: %w", err)
		}
		for _, id := range ids {
			out[kind] = append(out[kind], metadata.NormalizeID(id.String()))
		}
	}
	return out, nil
}
