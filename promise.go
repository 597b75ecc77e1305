package task

import (
	"sync"
)

// Promise is a set-once holder for the eventual outcome of some work:
// a value, a failure, or a cancellation.
//
// A cancelled Promise resolves with the zero value and no error; use IsCancelled to tell it apart.
// Cancellation wins races: resolving a Promise after it was cancelled is silently dropped.
// Resolving it twice otherwise is a programming error, and panics.
type Promise[T any] struct {
	mu        sync.Mutex
	resolved  bool
	cancelled bool
	value     T
	err       error
	waitCh    chan struct{}
	afterFns  []func()
}

// NewPromise returns a new unresolved promise, and the function which resolves it.
// You can start waiting on it immediately, and resolve it (or hand the resolve func
// off to someone else) at your leisure.
func NewPromise[T any]() (*Promise[T], func(T)) {
	p := newPromise[T]()
	return p, p.resolve
}

// Resolved returns a promise already resolved with v.
func Resolved[T any](v T) *Promise[T] {
	p := newPromise[T]()
	p.resolve(v)
	return p
}

func newPromise[T any]() *Promise[T] {
	return &Promise[T]{waitCh: make(chan struct{})}
}

// Cancel resolves the promise with the zero value, marking it cancelled.
// It's a no-op if the promise is already resolved.
func (p *Promise[T]) Cancel() {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return
	}
	p.resolved, p.cancelled = true, true
	p.notifyAndUnlock()
}

func (p *Promise[T]) resolve(v T) {
	p.settle(v, nil)
}

func (p *Promise[T]) reject(err error) {
	var zero T
	p.settle(zero, err)
}

func (p *Promise[T]) settle(v T, err error) {
	p.mu.Lock()
	if p.cancelled {
		// i've been raced.  drop my effect.
		p.mu.Unlock()
		return
	}
	if p.resolved {
		p.mu.Unlock()
		panic("multiple resolutions of Promise")
	}
	p.resolved = true
	p.value, p.err = v, err
	p.notifyAndUnlock()
}

// Await blocks until the promise is resolved or ctx is done,
// and returns the value and error (or ctx.Err(), if ctx finished first).
func (p *Promise[T]) Await(ctx Context) (T, error) {
	select {
	case <-p.waitCh:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ResolvedCh returns a channel which is closed when the promise is resolved.
func (p *Promise[T]) ResolvedCh() <-chan struct{} {
	return p.waitCh
}

// IsResolved is a nonblocking check.
func (p *Promise[T]) IsResolved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolved
}

// IsCancelled reports whether the promise was resolved by Cancel.
func (p *Promise[T]) IsCancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

// Value returns the resolved value, or the zero value if unresolved, failed, or cancelled.
func (p *Promise[T]) Value() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Err returns the failure the promise was resolved with, if any.
func (p *Promise[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// WhenResolved registers fn to be called once the promise is resolved.
// If it already is, fn is called immediately, on the calling goroutine;
// otherwise fn runs on whichever goroutine resolves the promise.
func (p *Promise[T]) WhenResolved(fn func()) {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		fn()
		return
	}
	p.afterFns = append(p.afterFns, fn)
	p.mu.Unlock()
}

// ReportTo causes the promise to be sent to ch once it's resolved.
// The send happens on its own goroutine, so a slow receiver never stalls the resolver.
func (p *Promise[T]) ReportTo(ch chan<- *Promise[T]) {
	p.WhenResolved(func() {
		go func() { ch <- p }()
	})
}

func (p *Promise[T]) notifyAndUnlock() {
	afterFns := p.afterFns
	p.afterFns = nil
	p.mu.Unlock()
	close(p.waitCh)
	for _, fn := range afterFns {
		fn()
	}
}
