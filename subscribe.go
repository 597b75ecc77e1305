package task

import (
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MinPollPeriod is the smallest period WhileRunning accepts.
// It's a floor on the spacing between polls, not a promise of timing precision.
const MinPollPeriod = time.Millisecond

// settleStep is how often a poller checks whether the first progress has arrived.
const settleStep = time.Millisecond

// OnProgress adds a progress listener, called with the old and new progress on every report.
//
// If the task has already finished, fn is instead called once, immediately,
// with the last progress as both arguments, signalling that nothing more will change.
// All OnProgress listeners share priority 0, and run in the order they were added.
func (t *Task[P, R]) OnProgress(fn func(old, new P)) *Task[P, R] {
	l := NewListener(fn)
	t.mu.Lock()
	if !t.state.IsTerminal() {
		// Registering under t.mu means no terminal transition can slip between check and listen.
		t.progress.Listen(l, 0)
		t.mu.Unlock()
		return t
	}
	t.mu.Unlock()
	last := t.progress.Get()
	fn(last, last)
	return t
}

// OnResult adds a result listener.  It's called exactly once:
// when the result is set, or immediately if it already has been.
func (t *Task[P, R]) OnResult(fn func(R)) *Task[P, R] {
	l := NewListener(func(_, r R) { fn(r) })
	if r, listening := t.result.listenUnlessSet(l, 0); !listening {
		fn(r)
	}
	return t
}

// WhileRunning calls fn with the current progress every period while the task is running,
// and once more when the task finishes, whatever the timing.
//
// Polling happens on a new goroutine, and starts once the body has reported progress at least once.
// Periods are best-effort: calls are never closer together than period, but may be further apart.
// When the task completes or is cancelled, the final call happens on the goroutine which sets the result,
// ahead of any other result listener, and may overlap with a poll that's in flight;
// so fn should be quick and safe for concurrent use.
// When the body fails there is no result, and the poller makes the final call as it exits.
//
// Periods under MinPollPeriod return ErrInvalidPeriod, and nothing is started.
// Consider OnProgress instead for listening at that granularity.
func (t *Task[P, R]) WhileRunning(fn func(P), period time.Duration) (*Task[P, R], error) {
	if period < MinPollPeriod {
		return t, fmt.Errorf("%w: %v is below the %v minimum; consider OnProgress instead", ErrInvalidPeriod, period, MinPollPeriod)
	}

	// Listening to the result ensures fn runs at completion regardless of where the poller is.
	// It's registered here, not on the poller, so even a task that finishes instantly gets its final call.
	var once sync.Once
	last := func() { once.Do(func() { fn(t.progress.Get()) }) }
	final := NewListener(func(_, _ R) { last() })
	if _, listening := t.result.listenUnlessSet(final, math.MaxInt); !listening {
		last()
		return t, nil
	}

	go t.poll(fn, period, final, last)
	return t, nil
}

func (t *Task[P, R]) poll(fn func(P), period time.Duration, final *Listener[R], last func()) {
	defer func() {
		// A failed body never sets the result, so the completion listener won't fire.
		if t.Err() != nil {
			last()
		}
		t.result.Unlisten(final)
	}()

	// Waits on doneCtx return an error, ending the loop, once the task is done.
	ctx := t.doneCtx
	settle := rate.NewLimiter(rate.Every(settleStep), 1)
	for !t.progress.HasBeenSet() {
		if err := settle.Wait(ctx); err != nil {
			return
		}
	}

	tick := rate.NewLimiter(rate.Every(period), 1)
	for {
		if err := tick.Wait(ctx); err != nil {
			return
		}
		fn(t.progress.Get())
	}
}
