package task_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/warpfork/go-task"
)

// Example shows a task counting to three, with a listener on each of its two observable cells.
func Example() {
	counter := task.Of(func(ctx task.Context, d *task.Delegate[int]) (string, error) {
		for i := 0; i <= 3; i++ {
			if err := d.SetProgress(i); err != nil {
				return "", err
			}
		}
		return "done", nil
	})
	counter.
		OnProgress(func(old, new int) { fmt.Printf("progress: %d -> %d\n", old, new) }).
		OnResult(func(r string) { fmt.Printf("result: %s\n", r) })

	v, err := counter.Run(context.Background())
	fmt.Printf("run returned %q, %v\n", v, err)

	// Listeners attached after the fact still hear about the end state, once.
	counter.OnProgress(func(old, new int) { fmt.Printf("late progress: %d -> %d\n", old, new) })
	counter.OnResult(func(r string) { fmt.Printf("late result: %s\n", r) })

	// Output:
	// progress: 0 -> 0
	// progress: 0 -> 1
	// progress: 1 -> 2
	// progress: 2 -> 3
	// result: done
	// run returned "done", <nil>
	// late progress: 3 -> 3
	// late result: done
}

// ExampleForkJoin shows a variation on the common
// fan-out-then-collect model of basic parallel computation.
//
// In plain Go, you would write much the same thing -- declare some variable
// to hold your gathered results, a waitgroup to wait for total completion,
// and a mutex to keep your gathering of results race-free; then launch
// off all your goroutines.
//
// With tasks, declaring the variable to hold your gathered results
// and mutexing the gather is still your application logic.
// ForkJoin handles the goroutine launch and the waiting,
// and if any task errors, immediately cancels all the others.
func ExampleForkJoin() {
	var foobarIn = map[string]int{
		"a": 1, "b": 2, "c": 3,
	}

	var foobarOut = map[string]int{}
	var mu sync.Mutex

	// In this example, we used a TasksFromMap helper function to make the tasks,
	// but you can take manual control over this or use other helpers.
	jobs := task.TasksFromMap(foobarIn, func(ctx task.Context, k string, v int) error {
		// pretend this is slow :)
		v += 4

		// gather sync and logic is still up to you.
		mu.Lock()
		defer mu.Unlock()
		foobarOut[k] = v
		return nil
	})
	err := task.ForkJoin(context.Background(), nil, jobs...)

	fmt.Printf("whee\n")
	fmt.Printf("%s", mapToStr(foobarOut))
	fmt.Printf("%v\n", err)

	// Output:
	//
	// whee
	//   - "a": 5
	//   - "b": 6
	//   - "c": 7
	// <nil>
}
