// Package gdrive implements remote.Service on top of the Google Drive v3 API.
package gdrive

import (
	"context"
	"fmt"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/gdfetch/gdfetch/internal/remote"
)

const (
	entryFields = "id,name,mimeType,size"
	listFields  = "nextPageToken,files(" + entryFields + ")"
	// infoFields are the fields shown by the info mode.
	infoFields = "createdTime,id,md5Checksum,mimeType,modifiedTime,name,owners,parents,shared,size,webContentLink,webViewLink"
	pageSize   = 1000
)

// Client is an authenticated Drive session.
type Client struct {
	svc *drive.Service
}

var _ remote.Service = (*Client)(nil)

// NewClient wraps an existing Drive service.
func NewClient(svc *drive.Service) *Client {
	return &Client{svc: svc}
}

// Service returns the underlying Drive service.
func (c *Client) Service() *drive.Service {
	return c.svc
}

// Metadata returns the entry of a file or folder.
func (c *Client) Metadata(ctx context.Context, id string) (*remote.Entry, error) {
	f, err := c.svc.Files.Get(id).
		Fields(googleapi.Field(entryFields)).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, translate(err, "metadata of "+id)
	}
	return toEntry(f), nil
}

// ListChildren returns every non-trashed child of folderID, following
// nextPageToken until the listing is complete.
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]*remote.Entry, error) {
	var entries []*remote.Entry
	q := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))
	err := c.svc.Files.List().
		Q(q).
		Fields(googleapi.Field(listFields)).
		PageSize(pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Pages(ctx, func(list *drive.FileList) error {
			for _, f := range list.Files {
				entries = append(entries, toEntry(f))
			}
			return nil
		})
	if err != nil {
		return nil, translate(err, "listing "+folderID)
	}
	return entries, nil
}

// OpenChunked opens a ranged read of a regular file, or an export of a
// Google Workspace document.
func (c *Client) OpenChunked(ctx context.Context, entry *remote.Entry, chunkSize int64) (remote.ChunkStream, error) {
	if entry.IsFolder() {
		return nil, fmt.Errorf("%s is a folder: %w", entry.ID, remote.ErrNotDownloadable)
	}
	if isWorkspace(entry.MimeType) {
		mime := exportMime(entry.MimeType)
		if mime == "" {
			return nil, fmt.Errorf("%s (%s): %w", entry.Name, entry.MimeType, remote.ErrNotDownloadable)
		}
		return &exportStream{call: c.svc.Files.Export(entry.ID, mime), id: entry.ID}, nil
	}
	return &rangeStream{files: c.svc.Files, id: entry.ID, chunk: chunkSize, total: -1}, nil
}

// FileInfo returns the full metadata of id as shown by the info mode.
func (c *Client) FileInfo(ctx context.Context, id string) (*drive.File, error) {
	f, err := c.svc.Files.Get(id).
		Fields(googleapi.Field(infoFields)).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, translate(err, "metadata of "+id)
	}
	return f, nil
}

func toEntry(f *drive.File) *remote.Entry {
	e := &remote.Entry{ID: f.Id, Name: f.Name, MimeType: f.MimeType, Size: -1}
	switch {
	case f.MimeType == folderMimeType:
		e.Kind = remote.Folder
	case isWorkspace(f.MimeType):
		e.Kind = remote.File
		e.Name = exportName(f.Name, f.MimeType)
	default:
		e.Kind = remote.File
		e.Size = f.Size
	}
	return e
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
