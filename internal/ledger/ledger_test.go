package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_AccumulatesPerID(t *testing.T) {
	// --- Arrange ---
	l := New()

	// --- Act ---
	l.Flag("VAV-2", "vav")
	l.Fail("VAV-2", "vav", "missing ZoneTemperature")
	l.Warn("AHU-1", "ahu", "used default point names")
	l.Topic("AHU-1", "devices/bldg/AHU-1")

	// --- Assert ---
	require.Equal(t, 2, l.Len())
	assert.False(t, l.Empty())
	assert.Equal(t, []string{"VAV-2", "AHU-1"}, l.IDs())

	rec, ok := l.Get("VAV-2")
	require.True(t, ok)
	assert.Equal(t, Record{Type: "vav", Error: "missing ZoneTemperature"}, rec)

	rec, ok = l.Get("AHU-1")
	require.True(t, ok)
	assert.Equal(t, "devices/bldg/AHU-1", rec.TopicName)
}

func TestLedger_FirstTypeWins(t *testing.T) {
	l := New()
	l.Flag("x", "lighting")
	l.Fail("x", "occupancy_detector", "boom")

	rec, _ := l.Get("x")
	assert.Equal(t, "lighting", rec.Type)
}

func TestLedger_MarshalKeepsInsertionOrder(t *testing.T) {
	// --- Arrange ---
	l := New()
	l.Fail("zeta", "ahu", "e1")
	l.Fail("alpha", "vav", "e2")

	// --- Act ---
	raw, err := json.Marshal(l)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":{"type":"ahu","error":"e1"},"alpha":{"type":"vav","error":"e2"}}`, string(raw))
}

func TestLedger_EmptyMarshalsToObject(t *testing.T) {
	raw, err := json.Marshal(New())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))
}
