// Package core implements the streaming filter-pipeline runtime: the
// Cmd context, the Filter contract, the Pipeline chain, and the Scheduler
// that drives filters in the order described by the project's filter
// contract (open/process/close, with control signals propagated between
// stages).
package core

// Status is the value a Filter's Process method returns to tell the
// Scheduler what to do next.
type Status int

const (
	// More means the filter needs more input from upstream before it can
	// produce output.
	More Status = iota
	// Data means the filter produced output in Cmd.Out; hand it downstream.
	Data
	// NextDone means the current logical item (e.g. one archive member)
	// finished; keep the filter alive but return control to whatever
	// upstream source produces items.
	NextDone
	// OutputDone means the filter is finished producing; the next Data
	// chunk downstream should be treated as the final one.
	OutputDone
	// Done means the whole pipeline should tear down successfully.
	Done
	// Back means the filter cannot handle its input as-is; the scheduler
	// must insert a converter filter before it and replay.
	Back
	// Async means the filter has suspended; the pipeline waits for an
	// explicit resume signal.
	Async
	// Fin means the filter finished but produced nothing useful (e.g. a
	// "show only" / dry-run mode).
	Fin
	// Err is a fatal, filter-local failure.
	Err
	// SysErr is a fatal failure rooted in a system call (open/read/write/stat).
	SysErr
)

func (s Status) String() string {
	switch s {
	case More:
		return "MORE"
	case Data:
		return "DATA"
	case NextDone:
		return "NEXTDONE"
	case OutputDone:
		return "OUTPUTDONE"
	case Done:
		return "DONE"
	case Back:
		return "BACK"
	case Async:
		return "ASYNC"
	case Fin:
		return "FIN"
	case Err:
		return "ERR"
	case SysErr:
		return "SYSERR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s ends the pipeline (no further Process calls).
func (s Status) Terminal() bool {
	switch s {
	case Done, Fin, Err, SysErr:
		return true
	default:
		return false
	}
}

// Signal is broadcast by the worker pool to every live pipeline's operation
// signal handler (spec: cancellation / interactive interrupt propagation).
type Signal int

const (
	// SigInterrupt asks every live pipeline to stop at its next yield point.
	SigInterrupt Signal = iota
)
