package task

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyCompleted is returned when progress or a result is set on a task that has
	// already finished (completed, cancelled, or failed), and by Run on such a task.
	ErrAlreadyCompleted = errors.New("task is already completed")

	// ErrAlreadyRunning is returned by Run when the task's body is already executing.
	ErrAlreadyRunning = errors.New("task is already running")

	// ErrInvalidPeriod is returned by WhileRunning for polling periods below MinPollPeriod.
	ErrInvalidPeriod = errors.New("invalid polling period")

	// ErrCancelled is the cause attached to a body's Context when its task is cancelled.
	// Bodies observe it via ctx.Done() and context.Cause(ctx).
	ErrCancelled = errors.New("task was forcibly cancelled")
)

// ExecutionError is how a body's failure is reported through the Promise returned by RunAsync.
type ExecutionError struct {
	TaskID uuid.UUID
	Task   string // the task's name.
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.Task, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// PanicError is returned in place of a panic raised by a task body.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task body panicked: %v", e.Value)
}

// Unwrap exposes the panic value if it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
