package eventloop

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	l := New(Options{DedicatedThread: true})
	assert.Equal(t, None, l.State())
	l.Start()
	assert.Equal(t, Idle, l.State())
	l.Pause()
	assert.Equal(t, Paused, l.State())
	l.Resume()
	assert.Equal(t, Idle, l.State())
	l.Stop()
	assert.Equal(t, Stopped, l.State())
	l.Shutdown()
	assert.Equal(t, Shutdown, l.State())
}

func TestDispatchFIFOOrder(t *testing.T) {
	l := New(Options{DedicatedThread: true})
	l.Start()
	defer l.Shutdown()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 1; i <= 3; i++ {
		i := i
		l.Dispatch(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestScheduleTimerFires(t *testing.T) {
	l := New(Options{DedicatedThread: true})
	l.Start()
	defer l.Shutdown()

	done := make(chan struct{})
	l.ScheduleTimer(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestCancelTimerPreventsRun(t *testing.T) {
	l := New(Options{DedicatedThread: true})
	l.Start()
	defer l.Shutdown()

	ran := false
	id := l.ScheduleTimer(20*time.Millisecond, func() { ran = true })
	l.CancelTimer(id)
	time.Sleep(50 * time.Millisecond)
	require.False(t, ran)
}
