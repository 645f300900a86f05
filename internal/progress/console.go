// Package progress shows transfer status on the console.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/gdfetch/gdfetch/internal/fetch"
	"github.com/gdfetch/gdfetch/internal/tree"
)

// Mode is how progress is rendered.
type Mode int

const (
	// Text rewrites one "\rDownloading <path>... 12.3%" line per file.
	Text Mode = iota
	// Bar draws a progress bar per file, for interactive terminals.
	Bar
	// Quiet prints only the final line of each file.
	Quiet
)

// Console is a fetch.Reporter writing to w. It is safe for concurrent use.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	mode Mode
	bars map[string]*progressbar.ProgressBar
	// open holds the paths whose "\r" line is not terminated yet.
	open map[string]bool
}

var _ fetch.Reporter = (*Console)(nil)

// NewConsole creates a Console.
func NewConsole(w io.Writer, mode Mode) *Console {
	return &Console{
		w:    w,
		mode: mode,
		bars: map[string]*progressbar.ProgressBar{},
		open: map[string]bool{},
	}
}

func (c *Console) newBar(t *fetch.Task) *progressbar.ProgressBar {
	return progressbar.NewOptions64(t.TotalBytes,
		progressbar.OptionSetDescription("Downloading "+t.LocalPath),
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
}

// Start drops the bar of the previous attempt, which restarts from byte 0.
func (c *Console) Start(t *fetch.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bar, ok := c.bars[t.LocalPath]; ok {
		_ = bar.Clear()
		delete(c.bars, t.LocalPath)
	}
}

func (c *Console) Progress(t *fetch.Task, ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.mode {
	case Bar:
		bar, ok := c.bars[t.LocalPath]
		if !ok {
			bar = c.newBar(t)
			c.bars[t.LocalPath] = bar
		}
		_ = bar.Set64(t.BytesWritten)
	case Text:
		fmt.Fprintf(c.w, "\rDownloading %s... %.1f%%", t.LocalPath, ratio*100)
		c.open[t.LocalPath] = true
	}
}

func (c *Console) Retry(t *fetch.Task, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == Quiet {
		return
	}
	c.endLine(t.LocalPath)
	fmt.Fprintf(c.w, "Download error: %s: %v. Retrying (%d/%d)...\n", t.LocalPath, err, t.Attempt+1, t.MaxRetries)
}

func (c *Console) Finish(r *fetch.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &r.Task
	c.endLine(t.LocalPath)
	if bar, ok := c.bars[t.LocalPath]; ok {
		_ = bar.Finish()
		delete(c.bars, t.LocalPath)
	}
	switch r.Outcome {
	case fetch.Succeeded:
		fmt.Fprintf(c.w, "Download complete: %s\n", t.LocalPath)
	case fetch.Skipped:
		fmt.Fprintf(c.w, "Skipped: %s\n", t.LocalPath)
	case fetch.Exhausted:
		fmt.Fprintf(c.w, "Failed to download file: %s. Tried %d times.\n", t.LocalPath, r.Attempts)
	default:
		fmt.Fprintf(c.w, "Failed to download file: %s. %v\n", t.LocalPath, r.Err)
	}
}

// endLine terminates a pending "\r" progress line.
func (c *Console) endLine(path string) {
	if c.open[path] {
		fmt.Fprintln(c.w)
		delete(c.open, path)
	}
}

// Summary prints the outcome of a folder traversal.
func (c *Console) Summary(rep *tree.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	results := rep.Results()
	fmt.Fprintf(c.w, "Done: %d of %d files downloaded, %d skipped, %d failed, %d folders.\n",
		rep.Count(fetch.Succeeded), len(results), rep.Count(fetch.Skipped), rep.Failures(), rep.Folders())
	for _, r := range results {
		if !r.OK() {
			fmt.Fprintf(c.w, "  failed: %s\n", r.Task.LocalPath)
		}
	}
	for _, err := range rep.Errors() {
		fmt.Fprintf(c.w, "  error: %v\n", err)
	}
}
