package fetch

import (
	"errors"
	"fmt"
)

// ErrRetryExhausted is wrapped by the error of a transfer that failed on
// every allotted attempt.
var ErrRetryExhausted = errors.New("retry exhausted")

// ErrLocalFile is wrapped by errors of the local destination, such as a
// directory standing where the file should go. They are not retried.
var ErrLocalFile = errors.New("local file")

// Outcome is the terminal state of one file transfer.
type Outcome int

const (
	Succeeded Outcome = iota
	// Exhausted means every attempt failed with a transient error.
	Exhausted
	// Failed means a permanent error such as a missing file. It is not retried.
	Failed
	// Skipped means there was nothing to download, or the local file already
	// exists and skipping was requested.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Exhausted:
		return "retry exhausted"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Task is the working state of one file transfer.
type Task struct {
	RemoteID  string
	Name      string
	LocalPath string
	// BytesWritten counts bytes written to LocalPath by the current attempt.
	BytesWritten int64
	// TotalBytes is -1 until the remote service reports it.
	TotalBytes int64
	// Attempt is 0-based.
	Attempt    int
	MaxRetries int
}

// Result is returned by every fetch, successful or not.
type Result struct {
	Task     Task
	Outcome  Outcome
	Attempts int
	Err      error
}

// OK reports whether the transfer left nothing to report as a failure.
func (r *Result) OK() bool {
	return r.Outcome == Succeeded || r.Outcome == Skipped
}

// failure classifies the error of a single attempt.
type failure int

const (
	transient failure = iota
	permanent
)
