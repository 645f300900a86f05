package tree

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/gdfetch/gdfetch/internal/fetch"
)

// Report collects everything that happened during one traversal. Nothing
// that fails below the root aborts the traversal; it ends up here instead.
type Report struct {
	mu      sync.Mutex
	results []*fetch.Result
	errs    []error
	folders int
}

func (r *Report) addResult(res *fetch.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *Report) addErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *Report) addFolder() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.folders++
}

// Results returns the per-file results in completion order.
func (r *Report) Results() []*fetch.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fetch.Result(nil), r.results...)
}

// Errors returns the listing and directory errors.
func (r *Report) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// Folders returns the number of local directories created or reused.
func (r *Report) Folders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.folders
}

// Count returns the number of files with outcome o.
func (r *Report) Count(o fetch.Outcome) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Failures returns the number of failed files plus listing errors.
func (r *Report) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.errs)
	for _, res := range r.results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// Err combines every failure, or returns nil.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	for _, res := range r.results {
		if !res.OK() {
			err = multierr.Append(err, res.Err)
		}
	}
	return multierr.Append(err, multierr.Combine(r.errs...))
}
