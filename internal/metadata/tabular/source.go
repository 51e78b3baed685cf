package tabular

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/agentconfgen/internal/metadata"
)

// DefaultClasses are the equipment class identifiers per kind: air handlers,
// dedicated outside air systems and rooftop units; plain and reheat terminal
// units; the main electric meter.
var DefaultClasses = map[metadata.Kind][]string{
	metadata.AirHandler:   {"1", "167", "5"},
	metadata.TerminalUnit: {"21", "158"},
	metadata.Meter:        {"32"},
}

// DefaultPowerPointClass identifies a meter's whole-building power point.
const DefaultPowerPointClass = "235"

// Options configures a Source.
type Options struct {
	// Classes overrides DefaultClasses per kind.
	Classes map[metadata.Kind][]string
	// PowerPointClass overrides DefaultPowerPointClass.
	PowerPointClass string
	// MeterID selects the meter by equipment identifier instead of by class.
	MeterID string
	// MetaField is the column compared against role labels.
	MetaField string
	Roles     metadata.RoleMap
}

type equipment struct {
	eq   metadata.Equipment
	rows []Record
}

// Source is the tabular metadata.Source.
type Source struct {
	opts  Options
	byKey map[metadata.Kind][]*equipment
	index map[metadata.Kind]map[string]*equipment
}

var (
	_ metadata.Source      = (*Source)(nil)
	_ metadata.PointLister = (*Source)(nil)
)

// New indexes records. Records missing a required column are rejected.
func New(records []Record, opts Options) (*Source, error) {
	if opts.MetaField == "" {
		opts.MetaField = ColPointClass
	}
	if opts.PowerPointClass == "" {
		opts.PowerPointClass = DefaultPowerPointClass
	}
	classes := make(map[metadata.Kind][]string, len(DefaultClasses))
	for k, v := range DefaultClasses {
		classes[k] = v
	}
	for k, v := range opts.Classes {
		classes[k] = v
	}
	opts.Classes = classes

	if len(records) > 0 {
		cols := append([]string{opts.MetaField}, RequiredColumns...)
		for _, col := range cols {
			if _, ok := records[0][col]; !ok {
				return nil, fmt.Errorf("point export has no %q column", col)
			}
		}
	}

	s := &Source{
		opts:  opts,
		byKey: make(map[metadata.Kind][]*equipment),
		index: make(map[metadata.Kind]map[string]*equipment),
	}
	for kind, ids := range classes {
		set := make(map[string]bool, len(ids))
		for _, id := range ids {
			set[metadata.NormalizeID(id)] = true
		}
		for _, rec := range records {
			if kind == metadata.Meter && opts.MeterID != "" {
				if metadata.NormalizeID(rec[ColEquipID]) != metadata.NormalizeID(opts.MeterID) {
					continue
				}
			} else if !set[metadata.NormalizeID(rec[ColEquipClass])] {
				continue
			}
			s.add(kind, rec)
		}
	}
	if s.opts.MeterID == "" {
		s.keepPowerMeters()
	}
	return s, nil
}

func (s *Source) add(kind metadata.Kind, rec Record) {
	if s.index[kind] == nil {
		s.index[kind] = make(map[string]*equipment)
	}
	id := metadata.NormalizeID(rec[ColEquipID])
	if id == "" {
		return
	}
	if e, ok := s.index[kind][id]; ok {
		e.rows = append(e.rows, rec)
		return
	}
	e := &equipment{
		eq: metadata.Equipment{
			ID:         id,
			Name:       fmt.Sprintf("%s_%s", id, strings.TrimSpace(rec[ColEquipName])),
			Kind:       kind,
			Parent:     metadata.NormalizeID(metadata.NormalizeRef(rec[ColParent])),
		},
		rows: []Record{rec},
	}
	s.index[kind][id] = e
	s.byKey[kind] = append(s.byKey[kind], e)
}

// keepPowerMeters drops meters without a whole-building power point.
func (s *Source) keepPowerMeters() {
	want := metadata.NormalizeID(s.opts.PowerPointClass)
	var kept []*equipment
	for _, e := range s.byKey[metadata.Meter] {
		if hasPointClass(e.rows, want) {
			kept = append(kept, e)
		} else {
			delete(s.index[metadata.Meter], e.eq.ID)
		}
	}
	s.byKey[metadata.Meter] = kept
}

func hasPointClass(rows []Record, class string) bool {
	for _, r := range rows {
		if metadata.NormalizeID(r[ColPointClass]) == class {
			return true
		}
	}
	return false
}

// FindEquipment implements metadata.Source. The device id attribute is taken
// from the first point name of the form device:type:index.
func (s *Source) FindEquipment(_ context.Context, kind metadata.Kind) ([]metadata.Equipment, error) {
	list := s.byKey[kind]
	out := make([]metadata.Equipment, 0, len(list))
	for _, e := range list {
		eq := e.eq
		eq.Attributes = map[string]string{}
		for _, r := range e.rows {
			if dev, _, _, ok := splitPointName(r[ColPointName]); ok {
				eq.Attributes[metadata.AttrDeviceID] = dev
				break
			}
		}
		out = append(out, eq)
	}
	return out, nil
}

// FindPoint implements metadata.Source.
func (s *Source) FindPoint(_ context.Context, equipID string, kind metadata.Kind, role string, scope metadata.Scope) (string, bool, error) {
	if err := metadata.RequireScope(kind, equipID, scope); err != nil {
		return "", false, err
	}
	e, ok := s.index[kind][metadata.NormalizeID(equipID)]
	if !ok {
		return "", false, nil
	}
	labels := s.opts.Roles.Labels(kind, role)
	if len(labels) == 0 {
		return "", false, nil
	}
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[metadata.NormalizeID(l)] = true
	}
	var match []string
	for _, r := range e.rows {
		if want[metadata.NormalizeID(r[s.opts.MetaField])] {
			match = append(match, r[ColPointName])
		}
	}
	if len(match) != 1 || match[0] == "" {
		return "", false, nil
	}
	return match[0], true, nil
}

// ListPoints implements metadata.PointLister.
func (s *Source) ListPoints(_ context.Context, equipID string, kind metadata.Kind, scope metadata.Scope) ([]metadata.Point, []string, error) {
	if err := metadata.RequireScope(kind, equipID, scope); err != nil {
		return nil, nil, err
	}
	e, ok := s.index[kind][metadata.NormalizeID(equipID)]
	if !ok {
		return nil, nil, fmt.Errorf("unknown %s %q", kind, equipID)
	}
	var points []metadata.Point
	var incomplete []string
	for _, r := range e.rows {
		name := r[ColPointName]
		_, objType, index, ok := splitPointName(name)
		if !ok {
			incomplete = append(incomplete, name)
			continue
		}
		points = append(points, metadata.Point{
			Reference:  name,
			Name:       name,
			ObjectType: objType,
			Index:      index,
			Writable:   !strings.HasSuffix(objType, "Input"),
		})
	}
	return points, incomplete, nil
}

func splitPointName(name string) (device, objType, index string, ok bool) {
	tokens := strings.Split(name, ":")
	if len(tokens) != 3 {
		return "", "", "", false
	}
	return tokens[0], tokens[1], tokens[2], true
}
