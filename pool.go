package task

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ExecutorFunc adapts a plain func into an Executor.
// The simplest useful one is:
//
//	task.ExecutorFunc(func(fn func()) { go fn() })
//
// which is also available as GoroutineExecutor.
// The main reason to write your own is to see a specific line number
// as the origin of a goroutine in panics and other runtime debugging output.
type ExecutorFunc func(func())

func (f ExecutorFunc) Go(fn func()) { f(fn) }

// GoroutineExecutor launches a new goroutine for every unit of work, without bound.
var GoroutineExecutor Executor = ExecutorFunc(func(fn func()) { go fn() })

// Pool is an Executor which runs at most Size units of work at once.
// Go never blocks: work beyond the limit waits its turn on its own parked goroutine.
//
// A Pool doesn't grow when its work blocks.  A task on a Pool which waits on other tasks
// queued behind it on the same Pool (say, by ForkJoin) can deadlock once that nesting
// is as deep as the Pool is wide; give such children their own Executor.
type Pool struct {
	size int
	sem  *semaphore.Weighted
	wg   sync.WaitGroup
}

// NewPool returns a Pool running at most size units at once.  Sizes below 1 are treated as 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size: size,
		sem:  semaphore.NewWeighted(int64(size)),
	}
}

func (p *Pool) Go(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Acquire can only fail on a done context, and Background never is.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		fn()
	}()
}

func (p *Pool) Size() int { return p.size }

// Wait blocks until all work submitted so far has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// DefaultExecutor is used by RunAsync, ForkJoin, and Stream when no Executor is given.
// It's GoroutineExecutor: unbounded, so a task which waits on tasks it launched
// never starves them of a worker, however deep the nesting.
var DefaultExecutor = GoroutineExecutor
