// Package timers implements the Timers core service (spec.md §4.2.4):
// setTimeout/clearTimeout on top of the event loop's own timer heap, so
// every callback still runs on the loop thread.
package timers

import (
	"time"

	"github.com/teranos/qntx-runtime/eventloop"
)

// Service binds the timers routes to a Loop.
type Service struct {
	loop *eventloop.Loop
}

// New constructs a Timers service bound to loop.
func New(loop *eventloop.Loop) *Service {
	return &Service{loop: loop}
}

// SetTimeout implements timers.setTimeout, returning an id usable with
// ClearTimeout.
func (s *Service) SetTimeout(ms int, cb func()) uint64 {
	return s.loop.ScheduleTimer(time.Duration(ms)*time.Millisecond, cb)
}

// ClearTimeout implements timers.clearTimeout.
func (s *Service) ClearTimeout(id uint64) {
	s.loop.CancelTimer(id)
}

// SetInterval is internal to services (spec.md §4.2.4): it reschedules
// itself after each firing until Clear is called on the returned handle.
type Interval struct {
	svc     *Service
	period  time.Duration
	cb      func()
	stopped bool
	id      uint64
}

// SetInterval starts a repeating timer.
func (s *Service) SetInterval(ms int, cb func()) *Interval {
	iv := &Interval{svc: s, period: time.Duration(ms) * time.Millisecond, cb: cb}
	iv.arm()
	return iv
}

func (iv *Interval) arm() {
	iv.id = iv.svc.loop.ScheduleTimer(iv.period, func() {
		if iv.stopped {
			return
		}
		iv.cb()
		iv.arm()
	})
}

// Clear stops the interval.
func (iv *Interval) Clear() {
	iv.stopped = true
	iv.svc.loop.CancelTimer(iv.id)
}
