package tabular

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/agentconfgen/internal/metadata"
)

const export = `EquipClassID,EquipmentID,EquipName,ParentEquipID,PointName,PointClassID
1,10,AHU-1,,1001:analogInput:1,101
1,10,AHU-1,,1001:analogValue:2,102
21,20,VAV-1,10.0,2001:analogInput:1,201
21,20,VAV-1,10.0,2001:analogInput:2,201
158,21,VAV-2,nan,2101:analogInput:1,201
32,30,Main Meter,,3001:analogInput:1,235
32,31,Sub Meter,,3101:analogInput:1,236
`

var roles = metadata.RoleMap{
	metadata.AirHandler:   {"OutdoorAirTemperature": {"101"}},
	metadata.TerminalUnit: {"ZoneTemperature": {"201"}},
}

func csvSource(t *testing.T, opts Options) *Source {
	t.Helper()
	recs, err := ReadCSV(strings.NewReader(export))
	require.NoError(t, err)
	opts.Roles = roles
	src, err := New(recs, opts)
	require.NoError(t, err)
	return src
}

func TestFindEquipment_GroupsAndNames(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	src := csvSource(t, Options{})
	ctx := context.Background()

	// --- Act ---
	ahus, err := src.FindEquipment(ctx, metadata.AirHandler)
	require.NoError(t, err)
	vavs, err := src.FindEquipment(ctx, metadata.TerminalUnit)
	require.NoError(t, err)
	meters, err := src.FindEquipment(ctx, metadata.Meter)
	require.NoError(t, err)

	// --- Assert ---
	want := []metadata.Equipment{{
		ID: "10", Name: "10_AHU-1", Kind: metadata.AirHandler,
		Attributes: map[string]string{metadata.AttrDeviceID: "1001"},
	}}
	if diff := cmp.Diff(want, ahus); diff != "" {
		t.Errorf("air handlers mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, vavs, 2)
	assert.Equal(t, "10", vavs[0].Parent)
	assert.Equal(t, metadata.NoParent, vavs[1].Parent)
	require.Len(t, meters, 1)
	assert.Equal(t, "30", meters[0].ID)
}

func TestFindEquipment_ConfiguredMeterID(t *testing.T) {
	t.Parallel()

	src := csvSource(t, Options{MeterID: "31"})
	meters, err := src.FindEquipment(context.Background(), metadata.Meter)
	require.NoError(t, err)
	require.Len(t, meters, 1)
	assert.Equal(t, "31_Sub Meter", meters[0].Name)
}

func TestFindPoint(t *testing.T) {
	t.Parallel()

	src := csvSource(t, Options{})
	ctx := context.Background()

	p, ok, err := src.FindPoint(ctx, "10", metadata.AirHandler, "OutdoorAirTemperature", metadata.Scope{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1001:analogInput:1", p)

	// two records carry the label, so the role is ambiguous
	_, ok, err = src.FindPoint(ctx, "20", metadata.TerminalUnit, "ZoneTemperature", metadata.Scope{})
	require.NoError(t, err)
	assert.False(t, ok)

	p, ok, err = src.FindPoint(ctx, "21", metadata.TerminalUnit, "ZoneTemperature", metadata.Scope{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2101:analogInput:1", p)

	_, ok, err = src.FindPoint(ctx, "21", metadata.TerminalUnit, "Undeclared", metadata.Scope{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListPoints(t *testing.T) {
	t.Parallel()

	src := csvSource(t, Options{})
	pts, incomplete, err := src.ListPoints(context.Background(), "10", metadata.AirHandler, metadata.Scope{})
	require.NoError(t, err)
	assert.Empty(t, incomplete)

	want := []metadata.Point{
		{Reference: "1001:analogInput:1", Name: "1001:analogInput:1", ObjectType: "analogInput", Index: "1", Writable: false},
		{Reference: "1001:analogValue:2", Name: "1001:analogValue:2", ObjectType: "analogValue", Index: "2", Writable: true},
	}
	if diff := cmp.Diff(want, pts); diff != "" {
		t.Errorf("points mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_MissingColumn(t *testing.T) {
	t.Parallel()

	recs, err := ReadCSV(strings.NewReader("EquipmentID,PointName\n1,a\n"))
	require.NoError(t, err)
	_, err = New(recs, Options{})
	assert.Error(t, err)
}

func TestReadSQLite_MatchesCSV(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "points.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE points (
		EquipClassID INTEGER, EquipmentID INTEGER, EquipName TEXT,
		ParentEquipID REAL, PointName TEXT, PointClassID INTEGER)`)
	require.NoError(t, err)
	recs, err := ReadCSV(strings.NewReader(export))
	require.NoError(t, err)
	for _, r := range recs {
		var parent any
		if p := metadata.NormalizeRef(r[ColParent]); p != metadata.NoParent {
			parent = p
		}
		_, err = db.Exec(`INSERT INTO points VALUES (?, ?, ?, ?, ?, ?)`,
			r[ColEquipClass], r[ColEquipID], r[ColEquipName], parent, r[ColPointName], r[ColPointClass])
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	// --- Act ---
	rows, err := ReadSQLite(context.Background(), path, "points")
	require.NoError(t, err)
	fromDB, err := New(rows, Options{Roles: roles})
	require.NoError(t, err)
	fromCSV := csvSource(t, Options{})

	// --- Assert ---
	for _, kind := range []metadata.Kind{metadata.AirHandler, metadata.TerminalUnit, metadata.Meter} {
		want, err := fromCSV.FindEquipment(context.Background(), kind)
		require.NoError(t, err)
		got, err := fromDB.FindEquipment(context.Background(), kind)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s mismatch (-csv +sqlite):\n%s", kind, diff)
		}
	}
}

func TestReadSQLite_RejectsBadTableName(t *testing.T) {
	t.Parallel()

	_, err := ReadSQLite(context.Background(), "unused.db", "points; DROP TABLE x")
	assert.Error(t, err)
}
