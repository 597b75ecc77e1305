// Package task provides a small asynchronous task primitive:
// a unit of work which reports live progress and an eventual result to observers,
// and which can be run synchronously or in the background, and cancelled cooperatively.
//
// Construct a Task from a Body with Of; run it with Run or RunAsync;
// and observe it with OnProgress, OnResult, or WhileRunning.
// The two value cells behind a Task are Observables, which are usable on their own.
package task

// Body is the work a Task performs.
//
// The Context is cancelled when the task is cancelled (its cause will be ErrCancelled),
// or when the Context given to Run is.  Cancellation is cooperative:
// a body that never looks at ctx simply runs to the end, and its result is discarded.
//
// The Delegate is the body's only handle on its task; it can report progress, nothing more.
type Body[P, R any] func(ctx Context, d *Delegate[P]) (R, error)

// Executor is anything that accepts a unit of work and runs it on some goroutine, eventually.
// RunAsync hands its work to an Executor; DefaultExecutor is used when none is given.
//
// Executors are generally expected to return immediately.
type Executor interface {
	Go(func())
}

// Job is something ForkJoin can launch, await, and cancel.  *Task implements it.
type Job interface {
	Name() string
	Cancel() bool

	// launch starts the job on exec and arranges for exactly one report to be sent once it resolves.
	// It's unexported because ForkJoin relies on behaviors the signature can't describe.
	launch(ctx Context, exec Executor, report chan<- reportMsg)
}

type TaskState uint8

const (
	TaskState_Created   TaskState = iota // Constructed; the body hasn't been started.
	TaskState_Running                    // The body is executing.
	TaskState_Completed                  // The body returned and its value is the result.  Terminal.
	TaskState_Cancelled                  // Cancel forced the zero value in as the result.  Terminal.
	TaskState_Failed                     // The body returned an error or panicked; there is no result.  Terminal.
)

func (s TaskState) String() string {
	switch s {
	case TaskState_Created:
		return "Created"
	case TaskState_Running:
		return "Running"
	case TaskState_Completed:
		return "Completed"
	case TaskState_Cancelled:
		return "Cancelled"
	case TaskState_Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further progress or result changes can come from the body.
func (s TaskState) IsTerminal() bool {
	return s >= TaskState_Completed
}
