package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type fakeFile struct {
	id      string
	name    string
	mime    string
	parent  string
	content []byte
}

// fakeDrive serves the subset of the Drive v3 REST API used by Client.
type fakeDrive struct {
	mu           sync.Mutex
	files        map[string]*fakeFile
	order        []string
	pageSize     int
	ignoreRanges bool
	unavailable  int

	ranges   []string
	requests int
	keys     []string
	auths    []string
	// tokenForms holds the bodies of token requests.
	tokenForms []url.Values
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: map[string]*fakeFile{}, pageSize: 2}
}

func (f *fakeDrive) add(file *fakeFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[file.id] = file
	f.order = append(f.order, file.id)
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	f.keys = append(f.keys, r.URL.Query().Get("key"))
	f.auths = append(f.auths, r.Header.Get("Authorization"))

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case path == "token":
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.tokenForms = append(f.tokenForms, r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)
	case path == "files":
		f.list(w, r)
	case strings.HasPrefix(path, "files/") && strings.HasSuffix(path, "/export"):
		f.export(w, r, strings.TrimSuffix(strings.TrimPrefix(path, "files/"), "/export"))
	case strings.HasPrefix(path, "files/"):
		id := strings.TrimPrefix(path, "files/")
		if r.URL.Query().Get("alt") == "media" {
			f.media(w, r, id)
			return
		}
		f.metadata(w, id)
	default:
		http.NotFound(w, r)
	}
}

func writeError(w http.ResponseWriter, code int, reason, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": msg,
			"errors":  []map[string]string{{"reason": reason, "message": msg}},
		},
	})
}

func (f *fakeDrive) lookup(w http.ResponseWriter, id string) *fakeFile {
	file, ok := f.files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "notFound", "File not found: "+id+".")
		return nil
	}
	return file
}

func toAPI(file *fakeFile) *drive.File {
	d := &drive.File{Id: file.id, Name: file.name, MimeType: file.mime}
	if !strings.HasPrefix(file.mime, workspacePrefix) {
		d.Size = int64(len(file.content))
	}
	return d
}

func (f *fakeDrive) metadata(w http.ResponseWriter, id string) {
	file := f.lookup(w, id)
	if file == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAPI(file))
}

func (f *fakeDrive) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	parent := strings.SplitN(strings.TrimPrefix(q, "'"), "'", 2)[0]

	var children []*fakeFile
	for _, id := range f.order {
		if f.files[id].parent == parent {
			children = append(children, f.files[id])
		}
	}
	start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	end := start + f.pageSize
	list := &drive.FileList{}
	if end < len(children) {
		list.NextPageToken = strconv.Itoa(end)
	} else {
		end = len(children)
	}
	for _, c := range children[start:end] {
		list.Files = append(list.Files, toAPI(c))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (f *fakeDrive) media(w http.ResponseWriter, r *http.Request, id string) {
	file := f.lookup(w, id)
	if file == nil {
		return
	}
	if f.unavailable > 0 {
		f.unavailable--
		writeError(w, http.StatusServiceUnavailable, "backendError", "try again")
		return
	}
	rng := r.Header.Get("Range")
	f.ranges = append(f.ranges, rng)
	if f.ignoreRanges || rng == "" {
		w.Write(file.content)
		return
	}

	var start, end int64
	fmt.Sscanf(rng, "bytes=%d-%d", &start, &end)
	size := int64(len(file.content))
	if start >= size {
		writeError(w, http.StatusRequestedRangeNotSatisfiable, "requestedRangeNotSatisfiable", "Request range not satisfiable")
		return
	}
	if end >= size {
		end = size - 1
	}
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	w.Write(file.content[start : end+1])
}

func (f *fakeDrive) export(w http.ResponseWriter, r *http.Request, id string) {
	file := f.lookup(w, id)
	if file == nil {
		return
	}
	mime := r.URL.Query().Get("mimeType")
	w.Header().Set("Content-Type", mime)
	fmt.Fprintf(w, "%s as %s", file.content, mime)
}

func testHTTPClient() *http.Client {
	return NewHTTPClient(WithRetryMax(2), WithRetryWait(time.Millisecond, time.Millisecond))
}

func newTestClient(t *testing.T, fake *fakeDrive) *Client {
	t.Helper()
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithHTTPClient(testHTTPClient()),
		option.WithEndpoint(ts.URL+"/"),
	)
	require.NoError(t, err)
	return NewClient(svc)
}
