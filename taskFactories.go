package task

import (
	"fmt"
	"strconv"
)

// TasksFromMap makes a Job for each entry of theMap, which calls taskFn with that entry.
// Each job is named by its key, formatted with fmt.Sprint.
//
// The jobs have no progress and no result; gathering what they produce is up to taskFn.
func TasksFromMap[K comparable, V any](
	theMap map[K]V,
	taskFn func(ctx Context, k K, v V) error,
	opts ...Option,
) []Job {
	jobs := make([]Job, 0, len(theMap))
	for k, v := range theMap {
		jobs = append(jobs, entryTask(fmt.Sprint(k), func(ctx Context) error {
			return taskFn(ctx, k, v)
		}, opts))
	}
	return jobs
}

// TasksFromSlice makes a Job for each element of theSlice, named by its index.
func TasksFromSlice[V any](
	theSlice []V,
	taskFn func(ctx Context, i int, v V) error,
	opts ...Option,
) []Job {
	jobs := make([]Job, len(theSlice))
	for i, v := range theSlice {
		jobs[i] = entryTask(strconv.Itoa(i), func(ctx Context) error {
			return taskFn(ctx, i, v)
		}, opts)
	}
	return jobs
}

// TasksFromChannel makes a Job for each value received from theChan, for use with Stream.
// Jobs are named by the order their values arrived in, counting from 0.
//
// The returned channel is closed once theChan is closed, or ctx is done.
func TasksFromChannel[V any](
	ctx Context,
	theChan <-chan V,
	taskFn func(ctx Context, v V) error,
	opts ...Option,
) <-chan Job {
	jobs := make(chan Job)
	go func() {
		defer close(jobs)
		for i := 0; ; i++ {
			var v V
			select {
			case val, ok := <-theChan:
				if !ok {
					return
				}
				v = val
			case <-ctx.Done():
				return
			}
			job := entryTask(strconv.Itoa(i), func(ctx Context) error {
				return taskFn(ctx, v)
			}, opts)
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()
	return jobs
}

func entryTask(name string, fn func(ctx Context) error, opts []Option) *Task[struct{}, struct{}] {
	opts = append([]Option{WithName(name)}, opts...)
	return Of(func(ctx Context, _ *Delegate[struct{}]) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, opts...)
}
