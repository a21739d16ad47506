// Package eventloop implements the runtime's single cooperative event loop
// (spec.md §4.3): explicit state transitions, a dispatch queue preserving
// FIFO order, and two deployment modes (dedicated thread vs host-loop
// integration). Grounded on _examples/original_source/src/runtime/loop.hh
// for the exact state enum and one-way transition rules.
package eventloop

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/teranos/qntx-runtime/rtlog"
)

// State mirrors Loop::State from the original loop.hh exactly: None=-1,
// Init=0, Idle=1, Polling=2, Paused=3, Stopped=4, Shutdown=5. Odd values
// are transitional.
type State int32

const (
	None     State = -1
	Init     State = 0
	Idle     State = 1
	Polling  State = 2
	Paused   State = 3
	Stopped  State = 4
	Shutdown State = 5
)

func (s State) String() string {
	switch s {
	case None:
		return "None"
	case Init:
		return "Init"
	case Idle:
		return "Idle"
	case Polling:
		return "Polling"
	case Paused:
		return "Paused"
	case Stopped:
		return "Stopped"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Options configures a Loop's deployment mode. DedicatedThread mirrors
// the original's per-platform default: true on Android/Windows/desktop
// extension builds, false where the loop integrates with a host main
// loop (Linux GTK, Apple dispatch queues).
type Options struct {
	DedicatedThread bool
}

// Loop is the single cooperative event loop. All service callbacks and
// dispatched closures run on its thread; invariant (c) from spec.md §3
// holds because only runDedicated (dedicated mode) or Pump (host-loop
// mode) ever drains the dispatch queue. The one exception is Dispatch's
// overflow path: when the 256-slot queue is full, fn runs inline on the
// caller's goroutine.
type Loop struct {
	opts Options

	state atomic.Int32

	mu      sync.Mutex
	dispatch chan func()
	timers   *timerHeap

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Loop in state None.
func New(opts Options) *Loop {
	l := &Loop{
		opts:     opts,
		dispatch: make(chan func(), 256),
		timers:   newTimerHeap(),
		stopCh:   make(chan struct{}),
	}
	l.state.Store(int32(None))
	return l
}

// State returns the current loop state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// InitOnce transitions None -> Init. It is idempotent and returns true
// iff the loop's state is >= Init and < Shutdown, matching the original's
// init() contract.
func (l *Loop) InitOnce() bool {
	l.state.CompareAndSwap(int32(None), int32(Init))
	s := l.State()
	return s >= Init && s < Shutdown
}

// Start begins running the loop. In dedicated-thread mode it spawns the
// owning goroutine and returns immediately; Dispatch/dispatched timers
// wake it. In host-loop mode, callers must invoke Pump repeatedly
// themselves (there is no dedicated goroutine).
func (l *Loop) Start() {
	if !l.InitOnce() {
		return
	}
	l.state.Store(int32(Idle))
	if l.opts.DedicatedThread {
		l.wg.Add(1)
		go l.runDedicated()
	}
}

func (l *Loop) runDedicated() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopCh:
			return
		case fn := <-l.dispatch:
			l.runClosure(fn)
		case <-l.timers.C():
			l.state.Store(int32(Polling))
			l.timers.FireDue(l.runClosure)
			l.state.Store(int32(Idle))
		}
	}
}

func (l *Loop) runClosure(fn func()) {
	if fn == nil {
		return
	}
	l.state.Store(int32(Polling))
	fn()
	if l.State() != Paused && l.State() != Shutdown && l.State() != Stopped {
		l.state.Store(int32(Idle))
	}
}

// Pump drains one dispatch/timer event in host-loop mode. The host main
// loop calls this from its own source handler.
func (l *Loop) Pump() {
	select {
	case fn := <-l.dispatch:
		l.runClosure(fn)
	default:
		l.timers.FireDue(l.runClosure)
	}
}

// Dispatch schedules fn onto the loop thread. Calls made in program order
// run in that same order (spec.md §4.3 "Ordering guarantees"); it is the
// sole cross-thread entry point (spec.md §6.5).
func (l *Loop) Dispatch(fn func()) {
	if l.State() >= Shutdown {
		return
	}
	select {
	case l.dispatch <- fn:
	default:
		rtlog.Logger.Warnw("eventloop: dispatch queue full, running inline", "state", l.State().String())
		fn()
	}
}

// ScheduleTimer arranges for fn to run on the loop thread after d,
// backing the Timers service's setTimeout (spec.md §4.2.4). In host-loop
// mode the host must keep calling Pump for timers to actually fire.
func (l *Loop) ScheduleTimer(d time.Duration, fn func()) uint64 {
	return l.timers.Schedule(d, func() { l.Dispatch(fn) })
}

// CancelTimer cancels a pending timer scheduled via ScheduleTimer,
// backing clearTimeout.
func (l *Loop) CancelTimer(id uint64) {
	l.timers.Cancel(id)
}

// Pause moves Idle/Polling -> Paused. Resume (Paused -> Idle) and a
// restart via Start after Stop (Stopped -> Idle) are the only reverse
// transitions the original allows.
func (l *Loop) Pause() {
	s := l.State()
	if s == Idle || s == Polling {
		l.state.Store(int32(Paused))
	}
}

// Resume moves Paused -> Idle.
func (l *Loop) Resume() {
	if l.State() == Paused {
		l.state.Store(int32(Idle))
	}
}

// Stop moves the loop to Stopped. A Stopped loop can be restarted via
// Start (Stopped -> Idle), per spec.md §3's Loop-state description.
func (l *Loop) Stop() {
	if l.State() >= Shutdown {
		return
	}
	l.state.Store(int32(Stopped))
	if l.opts.DedicatedThread {
		close(l.stopCh)
		l.wg.Wait()
		l.stopCh = make(chan struct{})
	}
}

// Shutdown is terminal: it drains pending timers, refuses further
// dispatch, and never reverses (spec.md §4.3, §5 "Shutdown cancels all
// timers... transitions the loop to Shutdown").
func (l *Loop) Shutdown() {
	if l.State() == Shutdown {
		return
	}
	if l.opts.DedicatedThread && l.State() != Stopped {
		close(l.stopCh)
		l.wg.Wait()
	}
	l.timers.CancelAll()
	l.state.Store(int32(Shutdown))
}
