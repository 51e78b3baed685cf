package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ReadJSON decodes the JSON document at path relative to the run's output
// directory.
func ReadJSON(t *testing.T, result *HarnessResult, rel string) any {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(result.OutputDir, rel))
	require.NoError(t, err, "expected output document %s", rel)
	var v any
	require.NoError(t, json.Unmarshal(raw, &v), "output document %s is not JSON", rel)
	return v
}

// ReadObject is ReadJSON for documents whose top level is an object.
func ReadObject(t *testing.T, result *HarnessResult, rel string) map[string]any {
	t.Helper()
	obj, ok := ReadJSON(t, result, rel).(map[string]any)
	require.True(t, ok, "output document %s is not a JSON object", rel)
	return obj
}

// LedgerIDs returns the device identifiers recorded in the run's failure
// report, or nil when the run wrote none.
func LedgerIDs(t *testing.T, result *HarnessResult) []string {
	t.Helper()
	path := filepath.Join(result.OutputDir, "errors", "unmapped_device_details")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries map[string]any
	require.NoError(t, json.Unmarshal(raw, &entries))
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	return ids
}
