// Package remote describes the capability the downloader needs from a cloud
// file-storage provider: metadata, folder listing and chunked reads.
package remote

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when an id does not exist or is not accessible.
	ErrNotFound = errors.New("remote entry not found")
	// ErrNotDownloadable is returned for entries that have no byte content,
	// such as script projects or shortcuts.
	ErrNotDownloadable = errors.New("remote entry cannot be downloaded")
)

// Kind tells files from folders.
type Kind int

const (
	File Kind = iota
	Folder
)

func (k Kind) String() string {
	if k == Folder {
		return "folder"
	}
	return "file"
}

// MarshalText writes the kind by name in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Entry is one node of the remote hierarchy as returned by a metadata or
// listing call.
type Entry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	MimeType string `json:"mimeType,omitempty"`
	// Size is -1 when unknown, and for folders.
	Size int64 `json:"size"`
}

// IsFolder reports whether e is a folder.
func (e *Entry) IsFolder() bool {
	return e.Kind == Folder
}

// Progress is what the service reports after each chunk.
type Progress struct {
	Written int64
	// Total is -1 when the service does not know the full length.
	Total int64
}

// Ratio returns Written/Total, and false when Total is unknown.
func (p Progress) Ratio() (float64, bool) {
	if p.Total <= 0 {
		return 0, false
	}
	return float64(p.Written) / float64(p.Total), true
}

// ChunkStream is a streaming read of one file, consumed one chunk at a time.
type ChunkStream interface {
	// NextChunk copies the next chunk into w. done is true once the whole
	// content has been delivered.
	NextChunk(ctx context.Context, w io.Writer) (p Progress, done bool, err error)
	Close() error
}

// Service is the authenticated handle to the remote object service.
type Service interface {
	Metadata(ctx context.Context, id string) (*Entry, error)
	// ListChildren returns the complete child set of a folder in service
	// order.
	ListChildren(ctx context.Context, folderID string) ([]*Entry, error)
	OpenChunked(ctx context.Context, entry *Entry, chunkSize int64) (ChunkStream, error)
}

// IsPermanent reports whether err should not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNotDownloadable) ||
		errors.Is(err, context.Canceled)
}
