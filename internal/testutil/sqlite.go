package testutil

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

// WritePointsDB creates a SQLite database in the test's directory holding
// the rows of csv, a comma-separated point list with a header row, in a
// text-typed table. It returns the database path.
func WritePointsDB(t *testing.T, dir, name, table, csv string) string {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.NotEmpty(t, lines)
	cols := strings.Split(lines[0], ",")

	path := filepath.Join(dir, name)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	defs := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = `"` + c + `" TEXT`
		marks[i] = "?"
	}
	_, err = db.Exec(`CREATE TABLE "` + table + `" (` + strings.Join(defs, ", ") + `)`)
	require.NoError(t, err)

	insert := `INSERT INTO "` + table + `" VALUES (` + strings.Join(marks, ", ") + `)`
	for _, line := range lines[1:] {
		cells := strings.Split(line, ",")
		args := make([]any, len(cols))
		for i := range cols {
			if i < len(cells) && cells[i] != "" {
				args[i] = cells[i]
			}
		}
		_, err = db.Exec(insert, args...)
		require.NoError(t, err)
	}
	return path
}
