package hcl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/agentconfgen/internal/config"
	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses path (a file, or a directory searched recursively for .hcl
// files) and decodes the merged attributes.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := l.files(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Parsing HCL configuration.", "files", files)

	doc, err := l.parse(files)
	if err != nil {
		return nil, err
	}
	model, err := config.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("HCL configuration decoded.", "keys", len(doc))
	return model, nil
}

func (l *Loader) files(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no .hcl files found in %s", config.ErrInvalid, path)
	}
	return files, nil
}

func (l *Loader) parse(files []string) (map[string]any, error) {
	parser := hclparse.NewParser()
	doc := make(map[string]any)
	origin := make(map[string]string)

	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		attrs, diags := f.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("%s: %w", file, diags)
		}
		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if prev, dup := origin[name]; dup {
				return nil, fmt.Errorf("%w: %q defined in both %s and %s", config.ErrInvalid, name, prev, file)
			}
			v, err := attributeValue(attrs[name])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			doc[name] = v
			origin[name] = file
		}
	}
	return doc, nil
}

// attributeValue evaluates a literal attribute and converts it to the
// generic form encoding/json produces.
func attributeValue(attr *hcl.Attribute) (any, error) {
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("attribute %q: %w", attr.Name, diags)
	}
	return toGeneric(val)
}

func toGeneric(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	b, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
