package graph

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/metadata"
)

// DefaultLabels are the equipment node labels per kind.
var DefaultLabels = map[metadata.Kind]string{
	metadata.AirHandler:        "AHU",
	metadata.TerminalUnit:      "VAV",
	metadata.Meter:             "Building_Electrical_Meter",
	metadata.LightingCircuit:   "Luminaire",
	metadata.OccupancyDetector: "OccupancyDetector",
}

const controllerLabel = "Bacnet Controller"

// Point property names.
const (
	propObjectName = "BACnet Object Name"
	propObjectID   = "BACnet Object Identifier"
	propUnits      = "units"
	propType       = "type"
)

// Options configures a Source.
type Options struct {
	// Labels overrides DefaultLabels per kind.
	Labels map[metadata.Kind]string
	// MetaField is the point property compared against role labels in
	// addition to the point's node labels.
	MetaField string
	Roles     metadata.RoleMap
}

// equipmentRow is one equipment row as returned by the graph.
type equipmentRow struct {
	id, parent, address, device, trunk string
}

func (r equipmentRow) String() string {
	return fmt.Sprintf("(parent %q, address %q, device %q, trunk %q)", r.parent, r.address, r.device, r.trunk)
}

type point struct {
	name   string
	labels []string
	props  map[string]any
}

// Source is the graph metadata.Source.
type Source struct {
	q      Querier
	opts   Options
	labels map[metadata.Kind]string
	points map[string][]point
	// vavGroups is the highest terminal unit group, computed on first use.
	vavGroups *int
}

var (
	_ metadata.Source      = (*Source)(nil)
	_ metadata.PointLister = (*Source)(nil)
	_ metadata.Namer       = (*Source)(nil)
)

// New validates the configured labels and returns a Source querying q.
func New(q Querier, opts Options) (*Source, error) {
	labels := make(map[metadata.Kind]string, len(DefaultLabels))
	for k, v := range DefaultLabels {
		labels[k] = v
	}
	for k, v := range opts.Labels {
		labels[k] = v
	}
	for k, v := range labels {
		if err := checkLabel(v); err != nil {
			return nil, fmt.Errorf("label for %s: %w", k, err)
		}
	}
	return &Source{q: q, opts: opts, labels: labels, points: make(map[string][]point)}, nil
}

func checkLabel(l string) error {
	if strings.TrimSpace(l) == "" {
		return fmt.Errorf("empty label")
	}
	for _, r := range l {
		if r == '`' || unicode.IsControl(r) {
			return fmt.Errorf("label %q contains %q", l, r)
		}
	}
	return nil
}

func quote(label string) string { return "`" + label + "`" }

func (s *Source) equipmentQuery(kind metadata.Kind) string {
	e := quote(s.labels[kind])
	c := quote(controllerLabel)
	ret := "c.`IP Address` AS address, c.`Device Object Identifier` AS device"
	switch kind {
	case metadata.TerminalUnit:
		return "MATCH (e:" + e + ") " +
			"OPTIONAL MATCH (a:" + quote(s.labels[metadata.AirHandler]) + ")-[:feeds]->(e) " +
			"OPTIONAL MATCH (c:" + c + ")-[:controls]->(e) " +
			"RETURN e.name AS id, a.name AS parent, " + ret + ", e.trunkId AS trunk ORDER BY id, parent, address, device"
	case metadata.LightingCircuit, metadata.OccupancyDetector:
		return "MATCH (e:" + e + ")-[:hasLocation]->(r:Room) " +
			"OPTIONAL MATCH (c:" + c + ")-[:controls]->(e) " +
			"RETURN e.name AS id, r.name AS parent, " + ret + ", null AS trunk ORDER BY parent, id, address, device"
	}
	return "MATCH (e:" + e + ") " +
		"OPTIONAL MATCH (c:" + c + ")-[:controls]->(e) " +
		"RETURN e.name AS id, null AS parent, " + ret + ", null AS trunk ORDER BY id, address, device"
}

// FindEquipment implements metadata.Source. Identical rows for one
// equipment collapse into one; rows that disagree on its parent, controller
// or trunk are a duplicate identifier.
func (s *Source) FindEquipment(ctx context.Context, kind metadata.Kind) ([]metadata.Equipment, error) {
	if _, ok := s.labels[kind]; !ok {
		return nil, fmt.Errorf("%w: %q", metadata.ErrUnknownKind, kind)
	}
	rows, err := s.q.Query(ctx, s.equipmentQuery(kind), nil)
	if err != nil {
		return nil, fmt.Errorf("querying %s equipment: %w", kind, err)
	}

	var out []metadata.Equipment
	seen := make(map[string]equipmentRow, len(rows))
	for _, r := range rows {
		row := equipmentRow{
			id:      text(r["id"]),
			parent:  metadata.NormalizeRef(text(r["parent"])),
			address: text(r["address"]),
			device:  text(r["device"]),
			trunk:   text(r["trunk"]),
		}
		if row.id == "" {
			continue
		}
		key := row.id
		if kind.RoomScoped() {
			key = row.parent + "/" + row.id
		}
		if prev, ok := seen[key]; ok {
			if prev != row {
				return nil, fmt.Errorf("%w: %s %q appears as %s and as %s",
					metadata.ErrDuplicateEquipment, kind, row.id, prev, row)
			}
			continue
		}
		seen[key] = row

		eq := metadata.Equipment{ID: row.id, Name: row.id, Kind: kind, Parent: row.parent, Attributes: map[string]string{}}
		if row.address != "" {
			eq.Attributes[metadata.AttrDeviceAddress] = row.address
		}
		if row.device != "" {
			eq.Attributes[metadata.AttrDeviceID] = row.device
		}
		if g, ok := lastDigit(row.trunk); ok && kind == metadata.TerminalUnit {
			eq.Attributes[metadata.AttrGroup] = strconv.Itoa(g)
		}
		out = append(out, eq)
	}

	if kind == metadata.LightingCircuit {
		if err := s.assignLightingGroups(ctx, out); err != nil {
			return nil, err
		}
	}
	ctxlog.FromContext(ctx).Debug("Graph equipment loaded.", "kind", kind, "count", len(out))
	return out, nil
}

// assignLightingGroups places lighting controllers in groups after the
// terminal unit groups, by the last digit of the controller id.
func (s *Source) assignLightingGroups(ctx context.Context, lights []metadata.Equipment) error {
	if s.vavGroups == nil {
		vavs, err := s.FindEquipment(ctx, metadata.TerminalUnit)
		if err != nil {
			return err
		}
		top := 0
		for _, v := range vavs {
			if v.Parent == metadata.NoParent {
				continue
			}
			if g, err := strconv.Atoi(v.Attributes[metadata.AttrGroup]); err == nil && g > top {
				top = g
			}
		}
		s.vavGroups = &top
	}
	for _, l := range lights {
		if g, ok := lastDigit(l.Attributes[metadata.AttrDeviceID]); ok {
			l.Attributes[metadata.AttrGroup] = strconv.Itoa(g + *s.vavGroups)
		}
	}
	return nil
}

func (s *Source) pointsOf(ctx context.Context, equipID string, kind metadata.Kind, scope metadata.Scope) ([]point, error) {
	if err := metadata.RequireScope(kind, equipID, scope); err != nil {
		return nil, err
	}
	label, ok := s.labels[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", metadata.ErrUnknownKind, kind)
	}
	key := string(kind) + "|" + scope.Room + "|" + equipID
	if pts, ok := s.points[key]; ok {
		return pts, nil
	}

	ret := " RETURN p.name AS name, labels(p) AS labels, properties(p) AS props ORDER BY name"
	var cypher string
	params := map[string]any{"id": equipID}
	if kind.RoomScoped() {
		cypher = "MATCH (p:Point)-[:isPointOf]->(e:" + quote(label) + ")-[:hasLocation]->(r:Room) " +
			"WHERE e.name STARTS WITH $id AND r.name = $room" + ret
		params["room"] = scope.Room
	} else {
		cypher = "MATCH (p:Point)-[:isPointOf]->(e:" + quote(label) + ") WHERE e.name = $id" + ret
	}

	rows, err := s.q.Query(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("querying points of %s %q: %w", kind, equipID, err)
	}
	pts := make([]point, 0, len(rows))
	for _, r := range rows {
		p := point{name: text(r["name"])}
		if ls, ok := r["labels"].([]any); ok {
			for _, l := range ls {
				p.labels = append(p.labels, text(l))
			}
		}
		p.props, _ = r["props"].(map[string]any)
		pts = append(pts, p)
	}
	s.points[key] = pts
	return pts, nil
}

// FindPoint implements metadata.Source.
func (s *Source) FindPoint(ctx context.Context, equipID string, kind metadata.Kind, role string, scope metadata.Scope) (string, bool, error) {
	pts, err := s.pointsOf(ctx, equipID, kind, scope)
	if err != nil {
		return "", false, err
	}
	want := make(map[string]bool)
	for _, l := range s.opts.Roles.Labels(kind, role) {
		want[l] = true
	}
	if len(want) == 0 {
		return "", false, nil
	}

	var match []string
	for _, p := range pts {
		if s.matches(p, want) {
			match = append(match, p.name)
		}
	}
	if len(match) != 1 || match[0] == "" {
		return "", false, nil
	}
	return match[0], true, nil
}

func (s *Source) matches(p point, want map[string]bool) bool {
	for _, l := range p.labels {
		if want[l] {
			return true
		}
	}
	if s.opts.MetaField != "" {
		if v := text(p.props[s.opts.MetaField]); v != "" && want[v] {
			return true
		}
	}
	return false
}

// ListPoints implements metadata.PointLister. Points lacking an object
// name, units, type or object identifier are reported as incomplete.
func (s *Source) ListPoints(ctx context.Context, equipID string, kind metadata.Kind, scope metadata.Scope) ([]metadata.Point, []string, error) {
	pts, err := s.pointsOf(ctx, equipID, kind, scope)
	if err != nil {
		return nil, nil, err
	}
	var out []metadata.Point
	var incomplete []string
	for _, p := range pts {
		ref := text(p.props[propObjectName])
		units := text(p.props[propUnits])
		typ := text(p.props[propType])
		oid := text(p.props[propObjectID])
		_, index, hasIndex := strings.Cut(oid, ":")
		if p.name == "" || ref == "" || units == "" || typ == "" || !hasIndex {
			incomplete = append(incomplete, p.name)
			continue
		}
		typ = strings.ToLower(typ[:1]) + typ[1:]
		out = append(out, metadata.Point{
			Reference:  ref,
			Name:       p.name,
			Units:      units,
			ObjectType: typ,
			Index:      strings.SplitN(index, ":", 2)[0],
			Writable:   !strings.HasSuffix(typ, "Input"),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, incomplete, nil
}

// PointName implements metadata.Namer. Fixture and detector points are only
// unique within their owner, so they carry the owner's leading token.
func (s *Source) PointName(raw, _ string, kind metadata.Kind, owner string) string {
	if !kind.RoomScoped() || owner == "" {
		return raw
	}
	prefix, _, _ := strings.Cut(owner, "_")
	return raw + "__" + prefix
}

func lastDigit(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	d := s[len(s)-1]
	if d < '0' || d > '9' {
		return 0, false
	}
	return int(d - '0'), true
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return metadata.NormalizeID(strconv.FormatFloat(x, 'f', -1, 64))
	}
	return fmt.Sprint(v)
}
