// Package remotetest provides an in-memory remote.Service for tests.
package remotetest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gdfetch/gdfetch/internal/remote"
)

// Fault makes OpenChunked or the stream it returns fail.
type Fault struct {
	// Attempts is the number of opens that fail; negative means every open.
	Attempts int
	// AfterBytes is the number of bytes delivered before the failure;
	// negative fails the open itself.
	AfterBytes int64
	Err        error
}

// Service is a fake remote tree. The zero value is not usable, use New.
type Service struct {
	mu       sync.Mutex
	entries  map[string]*remote.Entry
	children map[string][]string
	content  map[string][]byte
	faults   map[string]Fault
	opens    map[string]int
	lists    int
	unsized  map[string]bool

	// OnOpen, when set, is called at the start of every OpenChunked with
	// the 1-based open count of that id.
	OnOpen func(id string, n int)
}

// New returns an empty tree containing only the folder rootID.
func New(rootID string) *Service {
	s := &Service{
		entries:  map[string]*remote.Entry{},
		children: map[string][]string{},
		content:  map[string][]byte{},
		faults:   map[string]Fault{},
		opens:    map[string]int{},
		unsized:  map[string]bool{},
	}
	s.entries[rootID] = &remote.Entry{ID: rootID, Name: rootID, Kind: remote.Folder, Size: -1}
	return s
}

// AddFolder adds a folder under parentID.
func (s *Service) AddFolder(parentID, id, name string) *remote.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &remote.Entry{ID: id, Name: name, Kind: remote.Folder, Size: -1, MimeType: "application/vnd.google-apps.folder"}
	s.entries[id] = e
	s.children[parentID] = append(s.children[parentID], id)
	return e
}

// AddFile adds a file under parentID.
func (s *Service) AddFile(parentID, id, name string, data []byte) *remote.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &remote.Entry{ID: id, Name: name, Kind: remote.File, Size: int64(len(data)), MimeType: "application/octet-stream"}
	s.entries[id] = e
	s.content[id] = data
	s.children[parentID] = append(s.children[parentID], id)
	return e
}

// Inject registers a fault for id.
func (s *Service) Inject(id string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[id] = f
}

// HideTotal makes the stream of id report an unknown total length.
func (s *Service) HideTotal(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsized[id] = true
}

// Opens returns how many times OpenChunked was called for id.
func (s *Service) Opens(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[id]
}

// Lists returns the number of ListChildren calls.
func (s *Service) Lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func (s *Service) Metadata(ctx context.Context, id string) (*remote.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("metadata of %s: %w", id, remote.ErrNotFound)
	}
	c := *e
	return &c, nil
}

func (s *Service) ListChildren(ctx context.Context, folderID string) ([]*remote.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if e, ok := s.entries[folderID]; !ok || !e.IsFolder() {
		return nil, fmt.Errorf("list %s: %w", folderID, remote.ErrNotFound)
	}
	var out []*remote.Entry
	for _, id := range s.children[folderID] {
		c := *s.entries[id]
		out = append(out, &c)
	}
	return out, nil
}

func (s *Service) OpenChunked(ctx context.Context, entry *remote.Entry, chunkSize int64) (remote.ChunkStream, error) {
	s.mu.Lock()
	s.opens[entry.ID]++
	n := s.opens[entry.ID]
	data, ok := s.content[entry.ID]
	f, faulty := s.faults[entry.ID]
	hide := s.unsized[entry.ID]
	hook := s.OnOpen
	s.mu.Unlock()

	if hook != nil {
		hook(entry.ID, n)
	}
	if !ok {
		return nil, fmt.Errorf("open %s: %w", entry.ID, remote.ErrNotFound)
	}
	st := &stream{data: data, chunk: chunkSize, failAt: -1, hide: hide}
	if faulty && (f.Attempts < 0 || n <= f.Attempts) {
		if f.AfterBytes < 0 {
			return nil, f.Err
		}
		st.failAt = f.AfterBytes
		st.err = f.Err
	}
	return st, nil
}

type stream struct {
	data   []byte
	chunk  int64
	off    int64
	failAt int64
	err    error
	hide   bool
	closed bool
}

func (st *stream) NextChunk(ctx context.Context, w io.Writer) (remote.Progress, bool, error) {
	total := int64(len(st.data))
	p := remote.Progress{Written: st.off, Total: total}
	if st.hide {
		p.Total = -1
	}
	if err := ctx.Err(); err != nil {
		return p, false, err
	}
	end := st.off + st.chunk
	if st.chunk <= 0 || end > total {
		end = total
	}
	if st.failAt >= 0 && end > st.failAt {
		if st.failAt > st.off {
			n, _ := w.Write(st.data[st.off:st.failAt])
			st.off += int64(n)
		}
		p.Written = st.off
		return p, false, st.err
	}
	n, err := w.Write(st.data[st.off:end])
	st.off += int64(n)
	p.Written = st.off
	if err != nil {
		return p, false, err
	}
	return p, st.off >= total, nil
}

func (st *stream) Close() error {
	st.closed = true
	return nil
}
