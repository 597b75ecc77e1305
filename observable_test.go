package task

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservable_FirstSetNotifies(t *testing.T) {
	o := NewObservable[string]()
	assert.False(t, o.HasBeenSet())
	assert.Equal(t, "", o.Get())

	type change struct{ old, new string }
	var got []change
	o.OnChange(func(old, new string) { got = append(got, change{old, new}) }, 0)

	o.Set("a")
	o.Set("b")
	assert.True(t, o.HasBeenSet())
	assert.Equal(t, "b", o.Get())
	assert.Equal(t, []change{{"", "a"}, {"a", "b"}}, got)
}

func TestObservable_SetToZeroStillCountsAsSet(t *testing.T) {
	o := NewObservable[int]()
	o.Set(0)
	assert.True(t, o.HasBeenSet())
}

func TestObservable_NewObservableOf(t *testing.T) {
	o := NewObservableOf(7)
	assert.True(t, o.HasBeenSet())
	assert.Equal(t, 7, o.Get())
	v, listening := o.listenUnlessSet(NewListener(func(_, _ int) {}), 0)
	assert.False(t, listening)
	assert.Equal(t, 7, v)
}

func TestObservable_PriorityOrder(t *testing.T) {
	o := NewObservable[int]()
	var order []int
	for _, prio := range []int{5, 1, 3} {
		o.OnChange(func(_, _ int) { order = append(order, prio) }, prio)
	}
	o.Set(1)
	assert.Equal(t, []int{5, 3, 1}, order)
}

func TestObservable_TiesRunInRegistrationOrder(t *testing.T) {
	o := NewObservable[int]()
	var order []string
	o.OnChange(func(_, _ int) { order = append(order, "a") }, 0)
	o.OnChange(func(_, _ int) { order = append(order, "b") }, 0)
	o.OnChange(func(_, _ int) { order = append(order, "hi") }, 1)
	o.OnChange(func(_, _ int) { order = append(order, "c") }, 0)
	o.Set(1)
	assert.Equal(t, []string{"hi", "a", "b", "c"}, order)
}

func TestObservable_RelistenReplacesPriority(t *testing.T) {
	o := NewObservable[int]()
	var order []string
	a := NewListener(func(_, _ int) { order = append(order, "a") })
	o.Listen(a, 0)
	o.OnChange(func(_, _ int) { order = append(order, "b") }, 1)
	o.Listen(a, 2)
	require.Equal(t, 2, o.ListenerCount())

	o.Set(1)
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestObservable_Unlisten(t *testing.T) {
	o := NewObservable[int]()
	calls := 0
	l := o.OnChange(func(_, _ int) { calls++ }, 0)
	o.Set(1)
	o.Unlisten(l)
	o.Unlisten(l) // no-op the second time.
	o.Set(2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, o.ListenerCount())
}

func TestObservable_ListenUnlessSet(t *testing.T) {
	o := NewObservable[int]()
	calls := 0
	l := NewListener(func(_, _ int) { calls++ })
	_, listening := o.listenUnlessSet(l, 0)
	require.True(t, listening)
	o.Set(1)
	assert.Equal(t, 1, calls)
	v, listening := o.listenUnlessSet(NewListener(func(_, _ int) { calls++ }), 0)
	assert.False(t, listening)
	assert.Equal(t, 1, v)
	o.Set(2)
	assert.Equal(t, 2, calls)
}

func TestObservable_StoresAfterListeners(t *testing.T) {
	o := NewObservable[string]()
	var during []string
	o.OnChange(func(old, new string) {
		during = append(during, fmt.Sprintf("get=%q set=%v", o.Get(), o.HasBeenSet()))
	}, 0)

	o.Set("a")
	o.Set("b")
	assert.Equal(t, []string{`get="" set=false`, `get="a" set=true`}, during)
	assert.Equal(t, "b", o.Get())
}

func TestObservable_ListenUnlessSetDuringSet(t *testing.T) {
	o := NewObservable[int]()
	var lateCalls int
	var lateValue int
	var listening bool
	o.OnChange(func(_, _ int) {
		// Subscribing mid-Set is answered with the value being set, not registered.
		lateValue, listening = o.listenUnlessSet(NewListener(func(_, _ int) { lateCalls++ }), 0)
	}, 0)
	o.Set(5)
	assert.False(t, listening)
	assert.Equal(t, 5, lateValue)
	o.Set(6)
	assert.Equal(t, 0, lateCalls)
}

func TestObservable_SetIfAndFence(t *testing.T) {
	o := NewObservable[int]()
	closed := false
	allow := func() bool { return !closed }

	entered, release := make(chan struct{}), make(chan struct{})
	o.OnChange(func(_, new int) {
		if new == 1 {
			close(entered)
			<-release
		}
	}, 0)

	first := make(chan bool)
	go func() { first <- o.setIf(1, allow) }()
	<-entered

	// Close the gate while the first Set is still calling listeners.
	closed = true
	second := make(chan bool)
	go func() { second <- o.setIf(2, allow) }()

	fenced := make(chan struct{})
	go func() {
		o.fence()
		close(fenced)
	}()
	select {
	case <-fenced:
		t.Fatal("fence returned while a Set was still underway")
	case <-time.After(5 * time.Millisecond):
	}
	close(release)

	assert.True(t, <-first)
	assert.False(t, <-second)
	<-fenced
	assert.Equal(t, 1, o.Get())
}

func TestObservable_NilListenerPanics(t *testing.T) {
	assert.Panics(t, func() { NewListener[int](nil) })
	assert.Panics(t, func() { NewObservable[int]().Listen(nil, 0) })
}

func TestObservable_ConcurrentSetsDontInterleave(t *testing.T) {
	o := NewObservable[int]()
	var (
		mu     sync.Mutex
		inside bool
		calls  int
	)
	o.OnChange(func(_, _ int) {
		mu.Lock()
		if inside {
			mu.Unlock()
			t.Error("listener calls overlapped")
			return
		}
		inside = true
		calls++
		mu.Unlock()

		mu.Lock()
		inside = false
		mu.Unlock()
	}, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Set(i)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, calls)
}

func TestObservable_ListenerSeesOldAndNewInSequence(t *testing.T) {
	o := NewObservable[int]()
	prev := 0
	o.OnChange(func(old, new int) {
		assert.Equal(t, prev, old)
		prev = new
	}, 0)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Set(i)
		}()
	}
	wg.Wait()
	assert.Equal(t, o.Get(), prev)
}
