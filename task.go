package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Task is a unit of work with observable progress of type P and an eventual result of type R.
//
// Make one with Of.  A Task runs at most once, by either Run or RunAsync,
// and its result is set at most once: by the body returning, or by Cancel.
// All methods are safe for concurrent use.
type Task[P, R any] struct {
	id     uuid.UUID
	name   string
	body   Body[P, R]
	logger *slog.Logger

	progress *Observable[P]
	result   *Observable[R]

	// doneCtx is cancelled on the transition to any terminal state.
	doneCtx  Context
	markDone context.CancelFunc

	mu      sync.Mutex // guards everything below.
	state   TaskState
	final   R                       // the result, once Completed.
	failure error                   // the body's error, once Failed.
	cancel  context.CancelCauseFunc // interrupts the body; present while it runs.
	future  *Promise[R]             // present once RunAsync is called.
}

// Option configures a Task at construction.
type Option func(*options)

type options struct {
	name   string
	logger *slog.Logger
}

// WithName sets the name a task reports from Name, in logs, and to its body via ContextTaskName.
// The default is derived from the task's ID.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets where a task logs its lifecycle transitions.
// By default, tasks log nothing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Of returns a new Task which will run body.  No work happens until Run or RunAsync.
func Of[P, R any](body Body[P, R], opts ...Option) *Task[P, R] {
	if body == nil {
		panic("task: nil body")
	}
	id := uuid.New()
	o := options{
		name:   fmt.Sprintf("task-%s", id.String()[:8]),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	doneCtx, markDone := context.WithCancel(context.Background())
	return &Task[P, R]{
		id:       id,
		name:     o.name,
		body:     body,
		logger:   o.logger.With("task", o.name, "task_id", id.String()),
		progress: NewObservable[P](),
		result:   NewObservable[R](),
		doneCtx:  doneCtx,
		markDone: markDone,
		state:    TaskState_Created,
	}
}

func (t *Task[P, R]) ID() uuid.UUID { return t.id }
func (t *Task[P, R]) Name() string  { return t.name }

// State is an atomic read of the task's state, which may instantly be out of date.
func (t *Task[P, R]) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsCompleted reports whether the result has been set, by the body finishing or by Cancel.
// A task whose body failed has no result, and is not completed.
func (t *Task[P, R]) IsCompleted() bool {
	return t.result.HasBeenSet()
}

// Done returns a channel which is closed once the task reaches a terminal state.
func (t *Task[P, R]) Done() <-chan struct{} {
	return t.doneCtx.Done()
}

// Progress returns the latest progress, or the zero value if the body hasn't reported any.
func (t *Task[P, R]) Progress() P {
	return t.progress.Get()
}

// Result returns the result, or the zero value if there is none (yet).
func (t *Task[P, R]) Result() R {
	return t.result.Get()
}

// Err returns the body's failure, if the task is in TaskState_Failed.
func (t *Task[P, R]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failure
}

// Future returns the Promise for the task's result:
// the one made by RunAsync, if it was called;
// otherwise an already-resolved Promise if the task finished anyway;
// otherwise nil.
func (t *Task[P, R]) Future() *Promise[R] {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.future != nil {
		return t.future
	}
	if !t.state.IsTerminal() {
		return nil
	}
	p := newPromise[R]()
	t.settleLocked(p)
	return p
}

// settleLocked resolves p to match the task's terminal state.
func (t *Task[P, R]) settleLocked(p *Promise[R]) {
	switch t.state {
	case TaskState_Completed:
		p.resolve(t.final)
	case TaskState_Cancelled:
		p.Cancel()
	case TaskState_Failed:
		p.reject(&ExecutionError{t.id, t.name, t.failure})
	}
}

// Delegate is the capability handed to a task's body.
// It exposes the task's progress and nothing else.
type Delegate[P any] struct {
	cell progressCell[P]
}

type progressCell[P any] interface {
	Progress() P
	setProgress(P) error
}

// Progress returns the task's current progress.
func (d *Delegate[P]) Progress() P {
	return d.cell.Progress()
}

// SetProgress reports new progress, calling the task's progress listeners before it returns.
// It returns ErrAlreadyCompleted if the task has already finished, which for a running body
// generally means it was cancelled.
func (d *Delegate[P]) SetProgress(p P) error {
	return d.cell.setProgress(p)
}

func (t *Task[P, R]) setProgress(p P) error {
	ok := t.progress.setIf(p, func() bool {
		t.mu.Lock()
		defer t.mu.Unlock()
		return !t.state.IsTerminal()
	})
	if !ok {
		return ErrAlreadyCompleted
	}
	return nil
}

// begin moves the task from Created to Running and hands back the context the body will run with.
func (t *Task[P, R]) begin(parent Context) (Context, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case TaskState_Created:
	case TaskState_Running:
		return nil, ErrAlreadyRunning
	default:
		return nil, ErrAlreadyCompleted
	}
	ctx, cancel := context.WithCancelCause(parent)
	t.state = TaskState_Running
	t.cancel = cancel
	return appendCtxInfo(ctx, ctxInfo{t.id, t.name}), nil
}

// resolve completes the task with v.  It fails if the task already reached a terminal state,
// which is how a body outlasting its own cancellation finds out.
func (t *Task[P, R]) resolve(v R) error {
	t.mu.Lock()
	if t.state.IsTerminal() {
		t.mu.Unlock()
		return ErrAlreadyCompleted
	}
	t.state = TaskState_Completed
	t.final = v
	future := t.future
	t.mu.Unlock()

	// Progress reports already underway land before the result; later ones are refused.
	t.progress.fence()
	// The result goes in before done closes: pollers unhook their completion listener on done.
	t.result.Set(v)
	t.markDone()
	if future != nil {
		future.resolve(v)
	}
	return nil
}

// fail records the body's error.  If Cancel got there first, cancellation wins and this does nothing.
func (t *Task[P, R]) fail(err error) {
	t.mu.Lock()
	if t.state != TaskState_Running {
		t.mu.Unlock()
		return
	}
	t.state = TaskState_Failed
	t.failure = err
	future := t.future
	t.mu.Unlock()

	t.progress.fence()
	t.markDone()
	if future != nil {
		future.reject(&ExecutionError{t.id, t.name, err})
	}
}

// release drops the body's cancel func once the body has returned.
func (t *Task[P, R]) release() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel(nil)
	}
}
