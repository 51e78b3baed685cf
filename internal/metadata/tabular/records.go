package tabular

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/gocarina/gocsv"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

// Column names of the point export.
const (
	ColEquipClass  = "EquipClassID"
	ColEquipID     = "EquipmentID"
	ColEquipName   = "EquipName"
	ColParent      = "ParentEquipID"
	ColPointName   = "PointName"
	ColPointClass  = "PointClassID"
	DefaultDBTable = "points"
)

// RequiredColumns must be present in every record set.
var RequiredColumns = []string{ColEquipClass, ColEquipID, ColEquipName, ColParent, ColPointName, ColPointClass}

// Record is one row of the point export keyed by column name.
type Record map[string]string

// ReadCSV parses a point export with a header row.
func ReadCSV(r io.Reader) ([]Record, error) {
	rows, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("parsing point export: %w", err)
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = Record(row)
	}
	return out, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening point export: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ReadSQLite loads every row of table from the SQLite database at path, in
// rowid order.
func ReadSQLite(ctx context.Context, path, table string) ([]Record, error) {
	if table == "" {
		table = DefaultDBTable
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid points table name %q", table)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening point database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening point database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT * FROM "`+table+`" ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			rec[c] = cellText(vals[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", table, err)
	}
	return out, nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
