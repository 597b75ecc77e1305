package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warpfork/go-task"
)

func TestCountTo(t *testing.T) {
	counter := task.Of(countTo(5, time.Microsecond))
	var seen []int
	counter.OnProgress(func(_, n int) { seen = append(seen, n) })

	v, err := counter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, seen)
}

func TestCountTo_Cancelled(t *testing.T) {
	counter := task.Of(countTo(1000, time.Hour))
	future := counter.RunAsync(context.Background(), task.GoroutineExecutor)
	require.Eventually(t, func() bool { return counter.State() == task.TaskState_Running }, time.Second, time.Millisecond)
	counter.Cancel()

	v, err := future.Await(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "", v)
	assert.True(t, future.IsCancelled())
}
