// Package orchestrator drives multi-device workflows: mass command
// execution, network discovery, and periodic monitoring.
//
// Each workflow fans per-device work out to a bounded errgroup. Workers send
// plain results back over a channel and the orchestrating goroutine is the
// only one that touches the result set or calls the progress callback, so
// callers never need their own locking.
//
// A failing device is recorded in its result and never aborts the run.
// Cancellation is checked between devices; a command already sent to a
// device runs to its timeout.
package orchestrator

// Progress reports how many devices of a run have finished
type Progress struct {
	Completed int
	Total     int
}

// Fraction returns Completed/Total, or 1 for an empty run
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// ProgressFunc receives progress after each device finishes
type ProgressFunc func(Progress)

func (f ProgressFunc) report(completed, total int) {
	if f != nil {
		f(Progress{Completed: completed, Total: total})
	}
}
