// Package tree mirrors a remote folder hierarchy onto the local filesystem.
package tree

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/gdfetch/gdfetch/internal/fetch"
	"github.com/gdfetch/gdfetch/internal/logging"
	"github.com/gdfetch/gdfetch/internal/remote"
)

// Options are the parameters of a Materializer.
type Options struct {
	// Parallel is the number of sibling files downloaded at once. Values
	// below 2 keep the strictly sequential depth-first walk.
	Parallel int
	// RenameDuplicates gives later entries with an already used name a
	// numbered name instead of letting them overwrite the earlier one.
	RenameDuplicates bool
}

// Materializer walks a remote folder depth-first and hands every file to a
// fetcher.
type Materializer struct {
	svc     remote.Service
	fs      afero.Fs
	fetcher *fetch.Fetcher
	opts    Options
}

// New creates a Materializer. fetcher must write to the same fs.
func New(svc remote.Service, fs afero.Fs, fetcher *fetch.Fetcher, opts Options) *Materializer {
	return &Materializer{svc: svc, fs: fs, fetcher: fetcher, opts: opts}
}

type child struct {
	entry *remote.Entry
	path  string
}

// Materialize recreates folderID below localRoot. The report is always
// returned; the error is nil exactly when nothing failed.
func (m *Materializer) Materialize(ctx context.Context, folderID, localRoot string) (*Report, error) {
	rep := &Report{}
	if err := m.walk(ctx, folderID, localRoot, rep); err != nil {
		rep.addErr(err)
	}
	return rep, rep.Err()
}

// walk returns only cancellation; every other failure goes to rep.
func (m *Materializer) walk(ctx context.Context, folderID, dir string, rep *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.fs.MkdirAll(dir, 0o755); err != nil {
		rep.addErr(fmt.Errorf("creating directory %s: %w", dir, err))
		return nil
	}
	rep.addFolder()

	entries, err := m.svc.ListChildren(ctx, folderID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Error("listing folder failed", logging.String("path", dir), logging.Err(err))
		rep.addErr(fmt.Errorf("%s: %w", dir, err))
		return nil
	}
	logging.Debug("listed folder", logging.String("path", dir), logging.Int("children", len(entries)))

	children := m.resolve(dir, entries, rep)
	if m.opts.Parallel > 1 {
		return m.walkParallel(ctx, children, rep)
	}
	for _, c := range children {
		if err := m.visit(ctx, c, rep); err != nil {
			return err
		}
	}
	return nil
}

// resolve maps every entry to its local path, in listing order. When a file
// and a folder share a path, only entries of the kind listed last are kept,
// since a local path cannot hold both and the last entry wins.
func (m *Materializer) resolve(dir string, entries []*remote.Entry, rep *Report) []child {
	names := newNamer(m.opts.RenameDuplicates)
	children := make([]child, 0, len(entries))
	lastIsFolder := map[string]bool{}
	for _, e := range entries {
		name, dup := names.assign(e.Name, e.IsFolder())
		path, err := SafeJoin(dir, name)
		if err != nil {
			rep.addErr(fmt.Errorf("%s in %s: %w", e.ID, dir, err))
			continue
		}
		if dup {
			if m.opts.RenameDuplicates {
				logging.Warn("duplicate name renamed", logging.String("name", e.Name), logging.String("path", path), logging.String("id", e.ID))
			} else {
				logging.Warn("duplicate name, the later entry overwrites the earlier one", logging.String("path", path), logging.String("id", e.ID))
			}
		}
		lastIsFolder[path] = e.IsFolder()
		children = append(children, child{entry: e, path: path})
	}

	kept := children[:0]
	for _, c := range children {
		if c.entry.IsFolder() == lastIsFolder[c.path] {
			kept = append(kept, c)
			continue
		}
		m.supersede(c, rep)
	}
	return kept
}

// supersede records an entry replaced by a later entry of the other kind.
func (m *Materializer) supersede(c child, rep *Report) {
	logging.Warn("entry replaced by a later entry of another kind",
		logging.String("path", c.path), logging.String("id", c.entry.ID), logging.String("kind", c.entry.Kind.String()))
	if c.entry.IsFolder() {
		return
	}
	rep.addResult(&fetch.Result{
		Task: fetch.Task{
			RemoteID:   c.entry.ID,
			Name:       c.entry.Name,
			LocalPath:  c.path,
			TotalBytes: -1,
			MaxRetries: m.fetcher.Options().MaxRetries,
		},
		Outcome: fetch.Skipped,
	})
}

func (m *Materializer) visit(ctx context.Context, c child, rep *Report) error {
	if c.entry.IsFolder() {
		return m.walk(ctx, c.entry.ID, c.path, rep)
	}
	return m.download(ctx, c, rep)
}

func (m *Materializer) download(ctx context.Context, c child, rep *Report) error {
	res, _ := m.fetcher.FetchEntry(ctx, c.entry, c.path)
	rep.addResult(res)
	return ctx.Err()
}

// walkParallel downloads the files of one folder with a bounded number of
// workers, then walks its sub-folders in listing order. Files sharing a
// local path run one after another inside a single worker.
func (m *Materializer) walkParallel(ctx context.Context, children []child, rep *Report) error {
	var order []string
	chains := map[string][]child{}
	var folders []child
	for _, c := range children {
		if c.entry.IsFolder() {
			folders = append(folders, c)
			continue
		}
		if _, ok := chains[c.path]; !ok {
			order = append(order, c.path)
		}
		chains[c.path] = append(chains[c.path], c)
	}

	var g errgroup.Group
	g.SetLimit(m.opts.Parallel)
	for _, path := range order {
		chain := chains[path]
		g.Go(func() error {
			for _, c := range chain {
				if err := m.download(ctx, c, rep); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, c := range folders {
		if err := m.walk(ctx, c.entry.ID, c.path, rep); err != nil {
			return err
		}
	}
	return nil
}
