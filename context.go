package task

import (
	"context"

	"github.com/google/uuid"
)

// Context is an alias permitting you to refer to task.Context if you so desire.
type Context = context.Context

// ctxKey is a magic type used as a unique key for ctx.Value attachments.
//
// We have exactly one such key and store all further information in a struct underneath it,
// since each attachment costs an allocation and another link in the context chain.
type ctxKey = struct{}

type ctxInfo struct {
	id   uuid.UUID
	name string
}

func appendCtxInfo(ctx Context, info ctxInfo) Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

func readCtxInfo(ctx Context) (ctxInfo, bool) {
	info, ok := ctx.Value(ctxKey{}).(ctxInfo)
	return info, ok
}

// ContextTaskID returns the ID of the task whose body received this context,
// and false if the context didn't come from a task.
func ContextTaskID(ctx Context) (uuid.UUID, bool) {
	info, ok := readCtxInfo(ctx)
	return info.id, ok
}

// ContextTaskName returns the name of the task whose body received this context,
// or a placeholder string if there is no task in this context.
func ContextTaskName(ctx Context) string {
	info, ok := readCtxInfo(ctx)
	if !ok {
		return "[unmanaged]"
	}
	return info.name
}
