// Package ledger accumulates per-equipment failure records for a generation
// run. A non-empty ledger makes the run exit non-zero and is written to
// errors/unmapped_device_details.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is the structured failure entry for one equipment node or group.
type Record struct {
	Type             string `json:"type,omitempty"`
	Error            string `json:"error,omitempty"`
	Warning          string `json:"warning,omitempty"`
	TopicName        string `json:"topic_name,omitempty"`
	RegistryWarnings string `json:"registry_warnings,omitempty"`
}

// Ledger is an insertion-ordered map of id to Record. It is owned by a single
// generation run and is not safe for concurrent use.
type Ledger struct {
	order   []string
	records map[string]*Record
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{records: make(map[string]*Record)}
}

// entry returns the record for id, creating it on first use.
func (l *Ledger) entry(id, typ string) *Record {
	r, ok := l.records[id]
	if !ok {
		r = &Record{}
		l.records[id] = r
		l.order = append(l.order, id)
	}
	if typ != "" && r.Type == "" {
		r.Type = typ
	}
	return r
}

// Flag makes sure an entry exists for id without setting a message.
func (l *Ledger) Flag(id, typ string) {
	l.entry(id, typ)
}

// Fail sets the error message of the entry for id.
func (l *Ledger) Fail(id, typ, msg string) {
	l.entry(id, typ).Error = msg
}

// Failf is Fail with formatting.
func (l *Ledger) Failf(id, typ, format string, args ...any) {
	l.Fail(id, typ, fmt.Sprintf(format, args...))
}

// Warn sets the warning message of the entry for id.
func (l *Ledger) Warn(id, typ, msg string) {
	l.entry(id, typ).Warning = msg
}

// RegistryWarning sets the registry warning of the entry for id.
func (l *Ledger) RegistryWarning(id, typ, msg string) {
	l.entry(id, typ).RegistryWarnings = msg
}

// Topic records the topic hint of the entry for id.
func (l *Ledger) Topic(id, topicName string) {
	l.entry(id, "").TopicName = topicName
}

// Get returns a copy of the record for id.
func (l *Ledger) Get(id string) (Record, bool) {
	r, ok := l.records[id]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Has reports whether id has an entry.
func (l *Ledger) Has(id string) bool {
	_, ok := l.records[id]
	return ok
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.order) }

// Empty reports whether no failure was recorded.
func (l *Ledger) Empty() bool { return len(l.order) == 0 }

// IDs returns the entry ids in insertion order.
func (l *Ledger) IDs() []string {
	return append([]string(nil), l.order...)
}

// MarshalJSON encodes the ledger as a JSON object whose keys keep insertion
// order, so the report reads in the order equipment was processed.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range l.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(l.records[id])
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
