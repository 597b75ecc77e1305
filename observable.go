package task

import (
	"sort"
	"sync"
)

// Listener is the identity under which a change callback is registered on an Observable.
//
// Go funcs aren't comparable, so the address of the Listener is the key:
// calling Listen again with the same Listener replaces its priority
// rather than adding a second registration.
type Listener[T any] struct {
	fn func(old, new T)
}

// NewListener wraps a change callback in a Listener handle.
// The callback receives the value before the Set and the value being set.
func NewListener[T any](fn func(old, new T)) *Listener[T] {
	if fn == nil {
		panic("task: nil listener func")
	}
	return &Listener[T]{fn}
}

type registration[T any] struct {
	listener *Listener[T]
	priority int
	seq      uint64 // first-registration order; breaks priority ties.
}

// Observable is a value cell which notifies its listeners on every Set, including the first.
//
// Listeners run synchronously on the goroutine that calls Set,
// highest priority first, and in registration order among equal priorities.
// The new value is stored only after every listener has returned,
// so Get and HasBeenSet still report the previous state from inside a listener.
// Sets on a single Observable are serialized, so notifications from two Sets never interleave;
// consequently a listener must not Set the Observable it is listening to, or it will deadlock.
//
// The zero value is an empty Observable ready to use.
type Observable[T any] struct {
	setMu sync.Mutex // serializes Set, including the listener calls and the store.

	mu            sync.Mutex // guards everything below.
	value         T
	set           bool
	inflight      bool // a Set is calling listeners; pending is its value.
	pending       T
	registrations map[*Listener[T]]registration[T]
	seq           uint64
}

// NewObservable returns an Observable which has not been set.
func NewObservable[T any]() *Observable[T] {
	return &Observable[T]{}
}

// NewObservableOf returns an Observable already holding v.
// HasBeenSet reports true for it, and no listener is called for this initial value.
func NewObservableOf[T any](v T) *Observable[T] {
	return &Observable[T]{value: v, set: true}
}

// Set calls every listener registered at this moment with the current value and v,
// and then stores v.
func (o *Observable[T]) Set(v T) {
	o.setIf(v, nil)
}

// setIf is Set, unless allow reports false.
// allow is consulted under the lock that serializes Sets, so a caller which
// makes allow false and then calls fence knows no further value can land.
func (o *Observable[T]) setIf(v T, allow func() bool) bool {
	o.setMu.Lock()
	defer o.setMu.Unlock()
	if allow != nil && !allow() {
		return false
	}

	o.mu.Lock()
	old := o.value
	regs := o.sortedLocked()
	o.inflight, o.pending = true, v
	o.mu.Unlock()

	// Published even if a listener panics, so the cell never sticks in flight.
	defer func() {
		var zero T
		o.mu.Lock()
		o.value, o.set = v, true
		o.inflight, o.pending = false, zero
		o.mu.Unlock()
	}()
	for _, reg := range regs {
		reg.listener.fn(old, v)
	}
	return true
}

// fence waits for any Set in progress to finish storing.
func (o *Observable[T]) fence() {
	o.setMu.Lock()
	o.setMu.Unlock()
}

// Get returns the current value, or the zero value if Set was never called.
// Use HasBeenSet if "never set" and "set to the zero value" need telling apart.
func (o *Observable[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// HasBeenSet reports whether Set has been called at least once.
func (o *Observable[T]) HasBeenSet() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.set
}

// Listen registers l with the given priority, or updates the priority if l is already registered.
// Higher priorities are called first.
func (o *Observable[T]) Listen(l *Listener[T], priority int) {
	if l == nil {
		panic("task: nil listener")
	}
	o.mu.Lock()
	o.listenLocked(l, priority)
	o.mu.Unlock()
}

// OnChange registers fn under a fresh Listener and returns it, for later use with Unlisten.
func (o *Observable[T]) OnChange(fn func(old, new T), priority int) *Listener[T] {
	l := NewListener(fn)
	o.Listen(l, priority)
	return l
}

// Unlisten removes l.  It's a no-op if l isn't registered.
func (o *Observable[T]) Unlisten(l *Listener[T]) {
	o.mu.Lock()
	delete(o.registrations, l)
	o.mu.Unlock()
}

// ListenerCount returns the number of registered listeners.
func (o *Observable[T]) ListenerCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.registrations)
}

// listenUnlessSet registers l only if the Observable has never been set and no Set is underway.
// Otherwise it returns the value that was (or is being) set, and false.
// Doing the check and the registration under one lock is what lets callers choose
// between "subscribe" and "deliver now" without losing or doubling a Set that lands in between.
func (o *Observable[T]) listenUnlessSet(l *Listener[T], priority int) (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.inflight:
		return o.pending, false
	case o.set:
		return o.value, false
	}
	o.listenLocked(l, priority)
	var zero T
	return zero, true
}

func (o *Observable[T]) listenLocked(l *Listener[T], priority int) {
	if o.registrations == nil {
		o.registrations = make(map[*Listener[T]]registration[T])
	}
	if reg, ok := o.registrations[l]; ok {
		reg.priority = priority
		o.registrations[l] = reg
		return
	}
	o.seq++
	o.registrations[l] = registration[T]{l, priority, o.seq}
}

// sortedLocked returns a snapshot of the registrations, highest priority first.
func (o *Observable[T]) sortedLocked() []registration[T] {
	if len(o.registrations) == 0 {
		return nil
	}
	regs := make([]registration[T], 0, len(o.registrations))
	for _, reg := range o.registrations {
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})
	return regs
}
