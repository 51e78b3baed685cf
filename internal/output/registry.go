package output

import (
	"github.com/gocarina/gocsv"
	"github.com/vk/agentconfgen/internal/metadata"
)

const (
	registryProperty = "presentValue"
	registryNotes    = "auto generated"
)

// RegistryRow is one line of a BACnet driver registry file.
type RegistryRow struct {
	Reference  string `csv:"Reference Point Name"`
	Name       string `csv:"Volttron Point Name"`
	Units      string `csv:"Units"`
	ObjectType string `csv:"BACnet Object Type"`
	Property   string `csv:"Property"`
	Writable   string `csv:"Writable"`
	Index      string `csv:"Index"`
	Notes      string `csv:"Notes"`
}

// RegistryRows converts points to rows. name maps a point to its external
// name; nil keeps Point.Name.
func RegistryRows(points []metadata.Point, name func(metadata.Point) string) []RegistryRow {
	rows := make([]RegistryRow, 0, len(points))
	for _, p := range points {
		n := p.Name
		if name != nil {
			n = name(p)
		}
		writable := "False"
		if p.Writable {
			writable = "True"
		}
		rows = append(rows, RegistryRow{
			Reference:  p.Reference,
			Name:       n,
			Units:      p.Units,
			ObjectType: p.ObjectType,
			Property:   registryProperty,
			Writable:   writable,
			Index:      p.Index,
			Notes:      registryNotes,
		})
	}
	return rows
}

// RegistryCSV renders rows with a header line.
func RegistryCSV(rows []RegistryRow) ([]byte, error) {
	return gocsv.MarshalBytes(&rows)
}
