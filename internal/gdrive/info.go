package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	getfilelist "github.com/tanaikech/go-getfilelist"
)

// FolderTree retrieves every file and folder below folderID in one listing,
// grouped by folder path.
func (c *Client) FolderTree(folderID string) (*getfilelist.FileListDl, error) {
	list, err := getfilelist.Folder(folderID).Do(c.svc)
	if err != nil {
		return nil, translate(err, "listing tree of "+folderID)
	}
	return list, nil
}

// ShowFileInfo writes the metadata of a file as JSON.
func (c *Client) ShowFileInfo(ctx context.Context, w io.Writer, id string) error {
	f, err := c.FileInfo(ctx, id)
	if err != nil {
		return err
	}
	return writeJSON(w, f)
}

// ShowFolderInfo writes the tree of a folder as JSON.
func (c *Client) ShowFolderInfo(w io.Writer, folderID string) error {
	list, err := c.FolderTree(folderID)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

func writeJSON(w io.Writer, v interface{}) error {
	r, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", r)
	return err
}
