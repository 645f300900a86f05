package fetch

import "io"

// progressWriter counts the bytes written to the destination file of a task.
type progressWriter struct {
	destination io.Writer
	task        *Task
}

// Write implements io.Writer.Write.
func (pw *progressWriter) Write(p []byte) (n int, err error) {
	n, err = pw.destination.Write(p)
	pw.task.BytesWritten += int64(n)
	return n, err
}
