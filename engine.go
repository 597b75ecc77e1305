package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// Run executes the body on the calling goroutine and returns its value.
//
// The body's Context derives from ctx, so cancelling ctx is another way to interrupt it.
// If the body fails (or panics: that's returned as a *PanicError), the error is returned as-is
// and the task moves to TaskState_Failed.
// If the task was cancelled while the body ran, the body's value is discarded
// and Run returns an error matching both ErrCancelled and ErrAlreadyCompleted.
//
// Run returns ErrAlreadyRunning if the body is already executing,
// and ErrAlreadyCompleted if the task has already finished; the body isn't run again in either case.
func (t *Task[P, R]) Run(ctx Context) (R, error) {
	var zero R
	bodyCtx, err := t.begin(ctx)
	if err != nil {
		return zero, err
	}
	defer t.release()
	t.logger.Debug("task started")

	v, err := t.invoke(bodyCtx)
	if err != nil {
		t.fail(err)
		t.logger.Debug("task body failed", "error", err)
		return zero, err
	}
	if err := t.resolve(v); err != nil {
		t.logger.Warn("task result discarded; the task was cancelled first")
		return zero, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	t.logger.Debug("task completed")
	return v, nil
}

// invoke is the first function on the body's stack.
// It converts panics into errors, so a misbehaving body can't take its executor down with it.
func (t *Task[P, R]) invoke(ctx Context) (v R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			v, err = zero, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return t.body(ctx, &Delegate[P]{t})
}

// RunAsync hands Run to exec (DefaultExecutor, if exec is nil) and returns a Promise for the result.
//
// The Promise resolves after the result listeners have run.
// If the body fails, the Promise fails with an *ExecutionError wrapping that failure,
// unless the task was cancelled first, in which case the Promise is cancelled:
// it resolves with the zero value and no error.  Cancellation wins.
//
// Calling RunAsync again returns the same Promise; the task still only runs once.
// If the task already finished (say, by Run), the Promise is resolved accordingly right away.
func (t *Task[P, R]) RunAsync(ctx Context, exec Executor) *Promise[R] {
	if exec == nil {
		exec = DefaultExecutor
	}
	t.mu.Lock()
	if t.future != nil {
		future := t.future
		t.mu.Unlock()
		return future
	}
	future := newPromise[R]()
	t.future = future
	if t.state.IsTerminal() {
		t.settleLocked(future)
		t.mu.Unlock()
		return future
	}
	t.mu.Unlock()

	exec.Go(func() {
		if _, err := t.Run(ctx); errors.Is(err, ErrAlreadyRunning) {
			// Someone called Run directly while we were queued.
			// Their run will settle the promise when it finishes.
			t.logger.Debug("async run skipped; the task was already running")
		}
	})
	return future
}

// Cancel forces the task to finish with the zero value as its result, and interrupts the body.
//
// The result listeners are called, the Promise from RunAsync (if any) is cancelled,
// and the body's Context is cancelled with cause ErrCancelled.
// This is best-effort: a body that isn't watching its Context keeps running,
// and its eventual value is discarded.
//
// Cancel returns false, and does nothing, if the task had already completed or been cancelled.
// A task whose body failed can still be cancelled; that sets its result to the zero value.
//
// Progress reports already calling their listeners finish before the result is set,
// and Cancel waits for them; so a progress listener must not Cancel its own task
// on its own goroutine (do it with `go t.Cancel()`), or it will deadlock.
func (t *Task[P, R]) Cancel() bool {
	t.mu.Lock()
	switch t.state {
	case TaskState_Completed, TaskState_Cancelled:
		t.mu.Unlock()
		return false
	}
	t.state = TaskState_Cancelled
	cancel, future := t.cancel, t.future
	t.mu.Unlock()

	var zero R
	t.progress.fence()
	t.result.Set(zero)
	t.markDone()
	if cancel != nil {
		cancel(ErrCancelled)
	}
	if future != nil {
		future.Cancel()
	}
	t.logger.Debug("task cancelled")
	return true
}

func (t *Task[P, R]) launch(ctx Context, exec Executor, report chan<- reportMsg) {
	future := t.RunAsync(ctx, exec)
	future.WhenResolved(func() {
		// Off the resolver's goroutine: it may be the very supervisor that reads report.
		go func() { report <- reportMsg{t, future.Err()} }()
	})
}

// Wait blocks until the task reaches a terminal state or ctx is done.
func (t *Task[P, R]) Wait(ctx Context) error {
	select {
	case <-t.doneCtx.Done():
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
