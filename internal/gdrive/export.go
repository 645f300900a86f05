package gdrive

import (
	"path/filepath"
	"strings"
)

const (
	folderMimeType    = "application/vnd.google-apps.folder"
	workspacePrefix   = "application/vnd.google-apps."
	defaultExportMime = "application/pdf"
)

// defaultFormat is the export format of each Google Workspace type. Types that are
// missing have no byte content reachable through the API.
var defaultFormat = map[string]string{
	"application/vnd.google-apps.document":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.google-apps.spreadsheet":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.google-apps.presentation": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.google-apps.drawing":      "image/png",
	"application/vnd.google-apps.jam":          defaultExportMime,
	"application/vnd.google-apps.vid":          "video/mp4",
}

// mimeToExt holds the extension appended to exported files.
var mimeToExt = map[string]string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",
	"image/png":       ".png",
	"video/mp4":       ".mp4",
	defaultExportMime: ".pdf",
}

// isWorkspace reports whether mime is a Google Workspace type, which has to
// be exported rather than downloaded.
func isWorkspace(mime string) bool {
	return strings.HasPrefix(mime, workspacePrefix) && mime != folderMimeType
}

// exportMime returns the export format of a Workspace type, or "".
func exportMime(mime string) string {
	return defaultFormat[mime]
}

// exportName appends the extension of the export format when name has none.
func exportName(name, mime string) string {
	if filepath.Ext(name) != "" {
		return name
	}
	return name + mimeToExt[exportMime(mime)]
}
