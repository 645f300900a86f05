package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/gdfetch/gdfetch/internal/remote"
)

// rangeStream downloads a file with one "Range: bytes=a-b" request per chunk.
type rangeStream struct {
	files  *drive.FilesService
	id     string
	chunk  int64
	offset int64
	total  int64
}

func (s *rangeStream) progress() remote.Progress {
	return remote.Progress{Written: s.offset, Total: s.total}
}

func (s *rangeStream) NextChunk(ctx context.Context, w io.Writer) (remote.Progress, bool, error) {
	end := s.offset + s.chunk - 1
	if s.total >= 0 && end >= s.total {
		end = s.total - 1
	}
	requested := end - s.offset + 1
	call := s.files.Get(s.id).SupportsAllDrives(true).Context(ctx)
	call.Header().Set("Range", fmt.Sprintf("bytes=%d-%d", s.offset, end))
	res, err := call.Download()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusRequestedRangeNotSatisfiable && s.offset == 0 {
			// Zero-length file: there is no byte 0 to ask for.
			s.total = 0
			return s.progress(), true, nil
		}
		return s.progress(), false, translate(err, "downloading "+s.id)
	}
	defer res.Body.Close()

	whole := false
	switch res.StatusCode {
	case http.StatusPartialContent:
		if total, ok := parseContentRange(res.Header.Get("Content-Range")); ok {
			s.total = total
		}
	default:
		// The server ignored the range and sent everything.
		if s.offset != 0 {
			return s.progress(), false, fmt.Errorf("downloading %s: range ignored at offset %d", s.id, s.offset)
		}
		whole = true
	}

	n, err := io.Copy(w, res.Body)
	s.offset += n
	if err != nil {
		return s.progress(), false, fmt.Errorf("downloading %s: %w", s.id, err)
	}
	if res.ContentLength >= 0 && n < res.ContentLength {
		return s.progress(), false, fmt.Errorf("downloading %s: %w", s.id, io.ErrUnexpectedEOF)
	}

	if whole || (s.total < 0 && n < requested) {
		s.total = s.offset
	}
	if s.total >= 0 && s.offset >= s.total {
		return s.progress(), true, nil
	}
	if n == 0 {
		return s.progress(), false, fmt.Errorf("downloading %s: empty chunk at offset %d: %w", s.id, s.offset, io.ErrUnexpectedEOF)
	}
	return s.progress(), false, nil
}

func (s *rangeStream) Close() error {
	return nil
}

// parseContentRange returns the complete length of "bytes 0-99/1234".
func parseContentRange(v string) (int64, bool) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 || !strings.HasPrefix(v, "bytes ") {
		return 0, false
	}
	total, err := strconv.ParseInt(v[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

// exportStream converts a Workspace document in a single request; the
// export endpoint does not support ranges.
type exportStream struct {
	call *drive.FilesExportCall
	id   string
}

func (s *exportStream) NextChunk(ctx context.Context, w io.Writer) (remote.Progress, bool, error) {
	res, err := s.call.Context(ctx).Download()
	if err != nil {
		return remote.Progress{Total: -1}, false, translate(err, "exporting "+s.id)
	}
	defer res.Body.Close()

	n, err := io.Copy(w, res.Body)
	p := remote.Progress{Written: n, Total: -1}
	if err != nil {
		return p, false, fmt.Errorf("exporting %s: %w", s.id, err)
	}
	return p, true, nil
}

func (s *exportStream) Close() error {
	return nil
}
