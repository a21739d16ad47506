package timers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/teranos/qntx-runtime/eventloop"
)

func TestSetTimeoutFires(t *testing.T) {
	loop := eventloop.New(eventloop.Options{DedicatedThread: true})
	loop.Start()
	defer loop.Shutdown()

	svc := New(loop)
	done := make(chan struct{})
	svc.SetTimeout(5, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("never fired")
	}
}

func TestClearTimeoutPreventsRun(t *testing.T) {
	loop := eventloop.New(eventloop.Options{DedicatedThread: true})
	loop.Start()
	defer loop.Shutdown()

	svc := New(loop)
	ran := false
	id := svc.SetTimeout(20, func() { ran = true })
	svc.ClearTimeout(id)
	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran)
}
