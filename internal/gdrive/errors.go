package gdrive

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/gdfetch/gdfetch/internal/remote"
)

// ErrCredentials is returned when no usable credentials could be loaded or
// the consent flow did not complete.
var ErrCredentials = errors.New("authentication failed")

var notDownloadableReasons = map[string]bool{
	"fileNotDownloadable":       true,
	"cannotDownloadAbusiveFile": true,
	"exportSizeLimitExceeded":   true,
}

// translate maps Drive API errors onto the remote error taxonomy.
func translate(err error, what string) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("%s: %w", what, err)
	}
	if gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %s", what, remote.ErrNotFound, gerr.Message)
	}
	for _, item := range gerr.Errors {
		if notDownloadableReasons[item.Reason] {
			return fmt.Errorf("%s: %w: %s", what, remote.ErrNotDownloadable, item.Message)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
