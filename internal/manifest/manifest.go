// Package manifest builds the run-level index of emitted configuration
// documents that the agent platform uses to know what to load.
package manifest

import (
	"bytes"
	"encoding/json"
)

// FileName is the manifest's name under the output directory.
const FileName = "config_metadata.json"

// Entry is one emitted document.
type Entry struct {
	// Agent is the identity of the agent that loads the document.
	Agent string
	// Name is the config-store name; empty for single-document agents.
	Name string
	// Path is the location the document was written to.
	Path string
	// Kind is the document kind, e.g. device, registry, control.
	Kind string
	// Format is json, csv or raw.
	Format string
}

type wireEntry struct {
	Name   string `json:"config-name,omitempty"`
	Path   string `json:"config"`
	Format string `json:"config-type,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// Manifest is an ordered list of entries. It is built incrementally during
// a run and written once at the end.
type Manifest struct {
	entries []Entry
}

// New creates an empty manifest.
func New() *Manifest { return &Manifest{} }

// Add appends e.
func (m *Manifest) Add(e Entry) { m.entries = append(m.entries, e) }

// Entries returns a copy of the entries in insertion order.
func (m *Manifest) Entries() []Entry { return append([]Entry(nil), m.entries...) }

// Len returns the number of entries.
func (m *Manifest) Len() int { return len(m.entries) }

// Empty reports whether nothing was added.
func (m *Manifest) Empty() bool { return len(m.entries) == 0 }

// MarshalJSON groups entries by agent, keeping the order in which agents and
// entries were added.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var agents []string
	grouped := make(map[string][]wireEntry)
	for _, e := range m.entries {
		if _, ok := grouped[e.Agent]; !ok {
			agents = append(agents, e.Agent)
		}
		grouped[e.Agent] = append(grouped[e.Agent], wireEntry{Name: e.Name, Path: e.Path, Format: e.Format, Kind: e.Kind})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range agents {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(grouped[a])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
