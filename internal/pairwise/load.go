package pairwise

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed defaults/*.json
var defaults embed.FS

// ErrNotFound is returned when no criteria file exists for a device type.
var ErrNotFound = errors.New("pairwise criteria file not found")

// FileName returns the criteria file name for a device type.
func FileName(deviceType string) string {
	return fmt.Sprintf("pairwise_criteria_%s.json", deviceType)
}

// OutputName returns the name the criteria are published under.
func OutputName(deviceType string) string {
	return fmt.Sprintf("%s_criteria_matrix.json", deviceType)
}

// Load returns the raw criteria for deviceType and where they came from.
// A file in dir overrides the built-in default.
func Load(dir, deviceType string) ([]byte, string, error) {
	name := FileName(deviceType)
	if dir != "" {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err == nil {
			return raw, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, path, err
		}
	}

	raw, err := defaults.ReadFile("defaults/" + name)
	if err != nil {
		where := "built-in defaults"
		if dir != "" {
			where = dir + " or built-in defaults"
		}
		return nil, "", fmt.Errorf("%w: device type %q has no %s in %s", ErrNotFound, deviceType, name, where)
	}
	return raw, "builtin:" + name, nil
}
