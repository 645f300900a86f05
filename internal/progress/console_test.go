package progress

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdfetch/gdfetch/internal/fetch"
	"github.com/gdfetch/gdfetch/internal/remote/remotetest"
	"github.com/gdfetch/gdfetch/internal/tree"
)

func TestConsoleText(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, Text)
	task := &fetch.Task{LocalPath: "out/a.bin", TotalBytes: 8, MaxRetries: 3}

	c.Start(task)
	task.BytesWritten = 4
	c.Progress(task, 0.5)
	task.BytesWritten = 8
	c.Progress(task, 1)
	c.Finish(&fetch.Result{Task: *task, Outcome: fetch.Succeeded, Attempts: 1})

	assert.Equal(t,
		"\rDownloading out/a.bin... 50.0%\rDownloading out/a.bin... 100.0%\nDownload complete: out/a.bin\n",
		buf.String())
}

func TestConsoleRetryAndExhausted(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, Text)
	task := &fetch.Task{LocalPath: "a.bin", TotalBytes: 10, MaxRetries: 2}

	c.Start(task)
	task.BytesWritten = 5
	c.Progress(task, 0.5)
	c.Retry(task, errors.New("reset"))
	task.Attempt = 1
	c.Start(task)
	c.Retry(task, errors.New("reset"))
	c.Finish(&fetch.Result{Task: *task, Outcome: fetch.Exhausted, Attempts: 2})

	assert.Equal(t,
		"\rDownloading a.bin... 50.0%\n"+
			"Download error: a.bin: reset. Retrying (1/2)...\n"+
			"Download error: a.bin: reset. Retrying (2/2)...\n"+
			"Failed to download file: a.bin. Tried 2 times.\n",
		buf.String())
}

func TestConsoleQuiet(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, Quiet)
	task := &fetch.Task{LocalPath: "a.bin", TotalBytes: 10}

	c.Start(task)
	c.Progress(task, 0.5)
	c.Retry(task, errors.New("reset"))
	c.Finish(&fetch.Result{Task: *task, Outcome: fetch.Skipped})

	assert.Equal(t, "Skipped: a.bin\n", buf.String())
}

func TestConsoleBar(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, Bar)
	task := &fetch.Task{LocalPath: "a.bin", TotalBytes: 10}

	c.Start(task)
	task.BytesWritten = 10
	c.Progress(task, 1)
	assert.Len(t, c.bars, 1)
	c.Finish(&fetch.Result{Task: *task, Outcome: fetch.Succeeded, Attempts: 1})

	assert.Empty(t, c.bars)
	assert.Contains(t, buf.String(), "Download complete: a.bin\n")
}

func TestConsoleSummary(t *testing.T) {
	svc := remotetest.New("root")
	svc.AddFile("root", "1", "ok", []byte("ok"))
	svc.AddFile("root", "2", "bad", []byte("bad"))
	svc.Inject("2", remotetest.Fault{Attempts: -1, AfterBytes: -1, Err: errors.New("reset")})
	fs := afero.NewMemMapFs()
	f := fetch.New(svc, fs, fetch.Options{ChunkSize: 8, MaxRetries: 1}, nil)
	rep, err := tree.New(svc, fs, f, tree.Options{}).Materialize(context.Background(), "root", "/out")
	require.Error(t, err)

	var buf bytes.Buffer
	NewConsole(&buf, Text).Summary(rep)
	assert.Equal(t,
		"Done: 1 of 2 files downloaded, 0 skipped, 1 failed, 1 folders.\n  failed: /out/bad\n",
		buf.String())
}
