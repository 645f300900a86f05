package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/gdfetch/gdfetch/internal/config"
	"github.com/gdfetch/gdfetch/internal/fetch"
	"github.com/gdfetch/gdfetch/internal/logging"
	"github.com/gdfetch/gdfetch/internal/remote"
	"github.com/gdfetch/gdfetch/internal/tree"
)

var (
	// ErrNotAFile is returned when a folder id is given to FetchFile.
	ErrNotAFile = errors.New("id refers to a folder")
	// ErrNotAFolder is returned when a file id is given to FetchFolder.
	ErrNotAFolder = errors.New("id refers to a file")
)

// Downloader wires one authenticated service to the fetcher and the
// materializer.
type Downloader struct {
	svc     remote.Service
	fs      afero.Fs
	fetcher *fetch.Fetcher
	tree    *tree.Materializer
}

// NewDownloader creates a Downloader from the transfer settings of cfg.
func NewDownloader(svc remote.Service, fs afero.Fs, cfg *config.Config, reporter fetch.Reporter) *Downloader {
	f := fetch.New(svc, fs, fetch.Options{
		ChunkSize:    int64(cfg.ChunkSize),
		MaxRetries:   cfg.MaxRetries,
		RetryWait:    cfg.RetryWait,
		SkipExisting: cfg.SkipExisting,
	}, reporter)
	return &Downloader{
		svc:     svc,
		fs:      fs,
		fetcher: f,
		tree: tree.New(svc, fs, f, tree.Options{
			Parallel:         cfg.Parallel,
			RenameDuplicates: cfg.RenameDuplicates,
		}),
	}
}

// FetchFile downloads fileID into destinationDir under its remote name.
func (d *Downloader) FetchFile(ctx context.Context, fileID, destinationDir string) (*fetch.Result, error) {
	entry, err := d.svc.Metadata(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if entry.IsFolder() {
		return nil, fmt.Errorf("%s (%s): %w", fileID, entry.Name, ErrNotAFile)
	}
	if err := d.fs.MkdirAll(destinationDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", destinationDir, err)
	}
	path, err := tree.SafeJoin(destinationDir, entry.Name)
	if err != nil {
		return nil, err
	}
	logging.Info("downloading file", logging.String("id", fileID), logging.String("path", path), logging.Int64("size", entry.Size))
	return d.fetcher.FetchEntry(ctx, entry, path)
}

// FetchFolder mirrors the content of folderID into destinationDir.
func (d *Downloader) FetchFolder(ctx context.Context, folderID, destinationDir string) (*tree.Report, error) {
	entry, err := d.svc.Metadata(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !entry.IsFolder() {
		return nil, fmt.Errorf("%s (%s): %w", folderID, entry.Name, ErrNotAFolder)
	}
	logging.Info("downloading folder", logging.String("id", folderID), logging.String("name", entry.Name), logging.String("path", destinationDir))
	return d.tree.Materialize(ctx, folderID, destinationDir)
}
