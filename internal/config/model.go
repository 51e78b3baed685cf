package config

import (
	"errors"
	"strings"

	"github.com/vk/agentconfgen/internal/metadata"
	"github.com/vk/agentconfgen/internal/topic"
)

// ErrInvalid wraps every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Defaults applied by Normalize.
const (
	DefaultDriverVIP      = "platform.driver"
	DefaultILCAgentVIP    = "platform.ilc"
	DefaultPointMetaField = "miniDis"
	TabularPointMetaField = "PointClassID"
	devicesTopicRoot      = "devices"
)

// Model is the unified representation of a run configuration.
type Model struct {
	SiteID      Text   `json:"site_id"`
	Building    Text   `json:"building"`
	Campus      Text   `json:"campus"`
	TopicPrefix string `json:"topic_prefix"`

	ConfigTemplate map[string]any `json:"config_template"`
	// ExpressionFields overrides the keys whose strings hold expressions.
	ExpressionFields []string `json:"expression_fields"`

	PointMetaMap    RoleTable    `json:"point_meta_map"`
	PointMetaField  string       `json:"point_meta_field"`
	PointDefaultMap DefaultTable `json:"point_default_map"`

	OutputDir string `json:"output_dir"`

	PowerMeterID       Text `json:"power_meter_id"`
	BuildingPowerMeter Text `json:"building_power_meter"`
	BuildingPowerPoint Text `json:"building_power_point"`

	DriverVIP      string `json:"driver_vip"`
	AgentVIPPrefix string `json:"agent_vip_prefix"`
	ILCAgentVIP    string `json:"ilc_agent_vip"`

	PairwiseCriteriaDir      string `json:"pairwise_criteria_dir"`
	ValidatePairwiseCriteria *bool  `json:"validate_pairwise_criteria"`

	Metadata Metadata `json:"metadata"`
}

// Metadata selects and parameterizes the metadata source.
type Metadata struct {
	PointsCSV        string            `json:"points_csv"`
	PointsDB         string            `json:"points_db"`
	PointsTable      string            `json:"points_table"`
	ConnectionParams *ConnectionParams `json:"connection_params"`
	EquipmentClasses map[string][]Text `json:"equipment_classes"`
	PowerPointClass  Text              `json:"power_point_class"`
	Labels           map[string]string `json:"labels"`
}

// ConnectionParams locates a graph database.
type ConnectionParams struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// SourceKind names the configured metadata back end.
type SourceKind string

const (
	SourceCSV    SourceKind = "csv"
	SourceSQLite SourceKind = "sqlite"
	SourceGraph  SourceKind = "graph"
)

// Source returns the configured back end, or an error if none or several are set.
func (m *Metadata) Source() (SourceKind, error) {
	var kinds []SourceKind
	if m.PointsCSV != "" {
		kinds = append(kinds, SourceCSV)
	}
	if m.PointsDB != "" {
		kinds = append(kinds, SourceSQLite)
	}
	if m.ConnectionParams != nil && m.ConnectionParams.URI != "" {
		kinds = append(kinds, SourceGraph)
	}
	switch len(kinds) {
	case 0:
		return "", invalidf("metadata needs one of points_csv, points_db or connection_params.uri")
	case 1:
		return kinds[0], nil
	}
	return "", invalidf("metadata sets more than one source: %v", kinds)
}

// Normalize derives building and campus from site_id and fills defaults.
// It must run before the model is used.
func (m *Model) Normalize() {
	site := m.SiteID.String()
	if m.Building == "" && site != "" {
		m.Building = Text(site)
	}
	if m.Campus == "" && site != "" {
		if parts := strings.Split(site, "."); len(parts) >= 2 {
			m.Campus = Text(parts[len(parts)-2])
		}
	}
	if m.DriverVIP == "" {
		m.DriverVIP = DefaultDriverVIP
	}
	if m.ILCAgentVIP == "" {
		m.ILCAgentVIP = DefaultILCAgentVIP
	}
	if m.PointMetaMap == nil {
		m.PointMetaMap = RoleTable{}
	}
	if m.PointDefaultMap == nil {
		m.PointDefaultMap = DefaultTable{}
	}
}

// Validate checks the settings every flavor needs.
func (m *Model) Validate() error {
	if len(m.ConfigTemplate) == 0 {
		return invalidf("missing parameter in config: 'config_template'")
	}
	if _, err := m.Metadata.Source(); err != nil {
		return err
	}
	if m.TopicPrefix != "" {
		if _, err := topic.Parse(m.TopicPrefix); err != nil {
			return invalidf("topic_prefix: %v", err)
		}
	}
	return nil
}

// MetaField returns point_meta_field, defaulting per source kind.
func (m *Model) MetaField(src SourceKind) string {
	switch {
	case m.PointMetaField != "":
		return m.PointMetaField
	case src == SourceCSV || src == SourceSQLite:
		return TabularPointMetaField
	}
	return DefaultPointMetaField
}

// ValidatePairwise reports whether pairwise criteria must pass the
// consistency check. The key may also live inside config_template; the
// default is true.
func (m *Model) ValidatePairwise() bool {
	if m.ValidatePairwiseCriteria != nil {
		return *m.ValidatePairwiseCriteria
	}
	if v, ok := m.ConfigTemplate["validate_pairwise_criteria"].(bool); ok {
		return v
	}
	return true
}

// DeviceTopicBase is the prefix of device topics on the message bus:
// topic_prefix if set, else devices/{campus}/{building}.
func (m *Model) DeviceTopicBase() *topic.Address {
	if m.TopicPrefix != "" {
		if addr, err := topic.Parse(m.TopicPrefix); err == nil {
			return addr
		}
	}
	return topic.New(devicesTopicRoot, m.Campus.String(), m.Building.String())
}

// AgentTopicBase is the {campus}/{building} prefix agents use to address devices.
func (m *Model) AgentTopicBase() *topic.Address {
	return topic.New(m.Campus.String(), m.Building.String())
}

// ResolveOutputDir returns output_dir, or {building}_{fallback}.
func (m *Model) ResolveOutputDir(fallback string) string {
	if m.OutputDir != "" {
		return m.OutputDir
	}
	if b := m.Building.String(); b != "" {
		return b + "_" + fallback
	}
	return fallback
}

// VIPPrefix returns agent_vip_prefix, or fallback when unset.
func (m *Model) VIPPrefix(fallback string) string {
	if m.AgentVIPPrefix != "" {
		return m.AgentVIPPrefix
	}
	return fallback
}

// Roles returns the role map in metadata form.
func (m *Model) Roles() metadata.RoleMap { return metadata.RoleMap(m.PointMetaMap) }

// Defaults returns the default map in metadata form.
func (m *Model) Defaults() metadata.Defaults { return metadata.Defaults(m.PointDefaultMap) }

// Section returns a config_template sub-document.
func (m *Model) Section(name string) (map[string]any, bool) {
	s, ok := m.ConfigTemplate[name].(map[string]any)
	return s, ok
}
