package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/agentconfgen/internal/ctxlog"
	"github.com/vk/agentconfgen/internal/fsutil"
	"github.com/vk/agentconfgen/internal/ledger"
	"github.com/vk/agentconfgen/internal/manifest"
	"golang.org/x/sync/errgroup"
)

// writeLimit bounds concurrent document writes.
const writeLimit = 8

// Writer persists a single document and returns where it was written.
type Writer interface {
	Write(ctx context.Context, doc Document) (string, error)
}

// FSWriter writes documents below a root directory.
type FSWriter struct {
	root string
}

// NewFSWriter creates a writer rooted at dir. The directory is created on
// first write.
func NewFSWriter(dir string) *FSWriter {
	return &FSWriter{root: dir}
}

// Root returns the absolute output directory.
func (w *FSWriter) Root() string {
	if abs, err := filepath.Abs(w.root); err == nil {
		return abs
	}
	return w.root
}

// Write encodes doc and writes it to root/doc.Dir/doc.FileName.
func (w *FSWriter) Write(ctx context.Context, doc Document) (string, error) {
	if doc.FileName == "" {
		return "", fmt.Errorf("document of kind %q has no file name", doc.Kind)
	}
	data, err := doc.Encode()
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", doc.FileName, err)
	}

	dir := filepath.Join(w.Root(), string(doc.Dir))
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, doc.FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	ctxlog.FromContext(ctx).Debug("Wrote document.", "path", path, "kind", doc.Kind, "bytes", len(data))
	return path, nil
}

func (d Document) destination() string {
	return filepath.Join(string(d.Dir), d.FileName)
}

// Result reports what Persist wrote.
type Result struct {
	Written      []string
	Manifest     *manifest.Manifest
	ManifestPath string
	LedgerPath   string
}

// Persist writes docs concurrently, records every configs document in the
// manifest in input order, then writes the manifest and the ledger if they
// are non-empty. Of two documents with one destination the later is kept.
func Persist(ctx context.Context, w Writer, docs []Document, l *ledger.Ledger) (*Result, error) {
	res := &Result{Manifest: manifest.New()}

	last := make(map[string]int, len(docs))
	for i, d := range docs {
		last[d.destination()] = i
	}
	paths := make([]string, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(writeLimit)
	for i, d := range docs {
		if last[d.destination()] != i {
			continue
		}
		g.Go(func() error {
			path, err := w.Write(gctx, d)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	for _, d := range docs {
		path := paths[last[d.destination()]]
		res.Written = append(res.Written, path)
		if d.Dir == Configs {
			e := manifest.Entry{Agent: d.Agent, Name: d.ConfigName, Path: path, Kind: d.Kind}
			if d.Format != "" && d.Format != JSON {
				e.Format = string(d.Format)
			}
			res.Manifest.Add(e)
		}
	}

	if !res.Manifest.Empty() {
		path, err := w.Write(ctx, Document{Dir: Root, FileName: manifest.FileName, Kind: "manifest", Body: res.Manifest})
		if err != nil {
			return res, err
		}
		res.ManifestPath = path
	}

	if l != nil && !l.Empty() {
		path, err := w.Write(ctx, Document{Dir: Errors, FileName: LedgerFileName, Kind: "ledger", Body: l})
		if err != nil {
			return res, err
		}
		res.LedgerPath = path
	}
	return res, nil
}
