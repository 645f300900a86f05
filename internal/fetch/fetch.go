// Package fetch downloads one remote file to one local path, chunk by chunk,
// restarting the whole transfer on failure up to a fixed number of attempts.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go"
	"github.com/spf13/afero"

	"github.com/gdfetch/gdfetch/internal/logging"
	"github.com/gdfetch/gdfetch/internal/remote"
)

const (
	DefaultChunkSize  = 50 * 1024 * 1024
	DefaultMaxRetries = 10
	DefaultRetryWait  = 2 * time.Second
)

// Options are the parameters of a Fetcher.
type Options struct {
	ChunkSize int64
	// MaxRetries bounds the number of attempts. 0 makes no attempt.
	MaxRetries int
	// RetryWait is the fixed pause between attempts.
	RetryWait time.Duration
	// SkipExisting leaves an existing local file untouched.
	SkipExisting bool
}

// DefaultOptions returns 50 MiB chunks, 10 attempts and a 2 second wait.
func DefaultOptions() Options {
	return Options{
		ChunkSize:  DefaultChunkSize,
		MaxRetries: DefaultMaxRetries,
		RetryWait:  DefaultRetryWait,
	}
}

// Fetcher is the chunked file fetcher. It is safe for concurrent use as long
// as no two calls share a local path.
type Fetcher struct {
	svc      remote.Service
	fs       afero.Fs
	opts     Options
	reporter Reporter
}

// New creates a Fetcher. A nil reporter discards status.
func New(svc remote.Service, fs afero.Fs, opts Options, reporter Reporter) *Fetcher {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Fetcher{svc: svc, fs: fs, opts: opts, reporter: reporter}
}

// Options returns the options in use.
func (f *Fetcher) Options() Options {
	return f.opts
}

// Fetch resolves remoteID through the metadata service and downloads it to
// localPath. A metadata failure is a permanent failure of the transfer.
func (f *Fetcher) Fetch(ctx context.Context, remoteID, localPath string) (*Result, error) {
	entry, err := f.svc.Metadata(ctx, remoteID)
	if err != nil {
		res := &Result{
			Task:    Task{RemoteID: remoteID, LocalPath: localPath, TotalBytes: -1, MaxRetries: f.opts.MaxRetries},
			Outcome: Failed,
			Err:     fmt.Errorf("%s: %w", localPath, err),
		}
		f.reporter.Finish(res)
		return res, res.Err
	}
	return f.FetchEntry(ctx, entry, localPath)
}

// FetchEntry downloads entry to localPath, whose parent directory must
// exist. The returned error is nil exactly when the result is OK.
func (f *Fetcher) FetchEntry(ctx context.Context, entry *remote.Entry, localPath string) (*Result, error) {
	task := &Task{
		RemoteID:   entry.ID,
		Name:       entry.Name,
		LocalPath:  localPath,
		TotalBytes: -1,
		MaxRetries: f.opts.MaxRetries,
	}
	res := f.run(ctx, entry, task)
	f.reporter.Finish(res)
	if res.OK() {
		return res, nil
	}
	return res, res.Err
}

func (f *Fetcher) run(ctx context.Context, entry *remote.Entry, task *Task) *Result {
	if entry.IsFolder() {
		return &Result{Task: *task, Outcome: Failed, Err: fmt.Errorf("%s: %s is a folder", task.LocalPath, entry.ID)}
	}
	if f.opts.SkipExisting {
		if ok, _ := afero.Exists(f.fs, task.LocalPath); ok {
			logging.Info("local file exists, skipped", logging.String("id", entry.ID), logging.String("path", task.LocalPath))
			return &Result{Task: *task, Outcome: Skipped}
		}
	}
	if f.opts.MaxRetries <= 0 {
		return &Result{
			Task:    *task,
			Outcome: Exhausted,
			Err:     fmt.Errorf("%s: %w: no attempts allowed", task.LocalPath, ErrRetryExhausted),
		}
	}

	attempts := 0
	err := retry.Do(
		func() error {
			task.Attempt = attempts
			attempts++
			return f.attempt(ctx, entry, task)
		},
		retry.Context(ctx),
		retry.Attempts(uint(f.opts.MaxRetries)),
		retry.Delay(f.opts.RetryWait),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return classify(err) == transient
		}),
		retry.OnRetry(func(n uint, err error) {
			logging.Warn("download attempt failed",
				logging.String("id", entry.ID),
				logging.String("path", task.LocalPath),
				logging.Int("attempt", int(n)+1),
				logging.Int("max_retries", f.opts.MaxRetries),
				logging.Err(err))
			f.reporter.Retry(task, err)
		}),
	)

	res := &Result{Task: *task, Attempts: attempts}
	switch {
	case err == nil:
		res.Outcome = Succeeded
	case errors.Is(err, remote.ErrNotDownloadable):
		res.Outcome = Skipped
		logging.Info("remote entry has no downloadable content, skipped",
			logging.String("id", entry.ID), logging.String("path", task.LocalPath), logging.String("mime_type", entry.MimeType))
	case ctx.Err() != nil:
		res.Outcome = Failed
		res.Err = fmt.Errorf("%s: %w", task.LocalPath, ctx.Err())
	case classify(err) == permanent:
		res.Outcome = Failed
		res.Err = fmt.Errorf("%s: %w", task.LocalPath, err)
	default:
		res.Outcome = Exhausted
		res.Err = fmt.Errorf("%s: %w after %d attempts: %w", task.LocalPath, ErrRetryExhausted, attempts, err)
	}
	return res
}

// attempt performs one complete transfer from byte 0. The stream is opened
// before the local file is touched, so an entry that cannot be downloaded
// leaves an existing file in place. A failed attempt removes what it wrote.
func (f *Fetcher) attempt(ctx context.Context, entry *remote.Entry, task *Task) (err error) {
	task.BytesWritten = 0
	f.reporter.Start(task)

	stream, err := f.svc.OpenChunked(ctx, entry, f.opts.ChunkSize)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := f.fs.Remove(task.LocalPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: deleting existing file: %w", ErrLocalFile, err)
	}
	file, err := f.fs.OpenFile(task.LocalPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: creating local file: %w", ErrLocalFile, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing local file: %w", cerr)
		}
		if err == nil {
			return
		}
		// An incomplete file must not look like a finished download.
		if rmErr := f.fs.Remove(task.LocalPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("removing incomplete file", logging.String("path", task.LocalPath), logging.Err(rmErr))
		}
	}()

	w := &progressWriter{destination: file, task: task}
	for {
		p, done, err := stream.NextChunk(ctx, w)
		if err != nil {
			return err
		}
		if p.Total >= 0 {
			task.TotalBytes = p.Total
		}
		if ratio, ok := p.Ratio(); ok {
			f.reporter.Progress(task, ratio)
		}
		if done {
			return nil
		}
	}
}

func classify(err error) failure {
	if remote.IsPermanent(err) || errors.Is(err, ErrLocalFile) {
		return permanent
	}
	return transient
}
