package fetch

// Reporter receives the side-channel status of transfers. Implementations
// must tolerate calls from several goroutines when sibling files are
// fetched in parallel.
type Reporter interface {
	// Start is called before every attempt.
	Start(t *Task)
	// Progress is called after each chunk whose total length is known.
	Progress(t *Task, ratio float64)
	// Retry is called after a failed attempt that will be retried or that
	// used up the last attempt.
	Retry(t *Task, err error)
	Finish(r *Result)
}

type nopReporter struct{}

func (nopReporter) Start(*Task)            {}
func (nopReporter) Progress(*Task, float64) {}
func (nopReporter) Retry(*Task, error)     {}
func (nopReporter) Finish(*Result)         {}
