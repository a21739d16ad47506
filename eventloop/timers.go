package eventloop

import (
	"container/heap"
	"sync"
	"time"
)

// timerEntry is one scheduled callback, ordered by deadline.
type timerEntry struct {
	id       uint64
	deadline time.Time
	fn       func()
	cancelled bool
	index    int
}

type timerQueue []*timerEntry

func (q timerQueue) Len() int            { return len(q) }
func (q timerQueue) Less(i, j int) bool  { return q[i].deadline.Before(q[j].deadline) }
func (q timerQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index, q[j].index = i, j }
func (q *timerQueue) Push(x interface{}) {
	e := x.(*timerEntry)
	e.index = len(*q)
	*q = append(*q, e)
}
func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// timerHeap schedules cancellable one-shot callbacks for the loop, used
// by both the loop's internal polling and the Timers service's
// setTimeout/clearTimeout (spec.md §4.2.4).
type timerHeap struct {
	mu      sync.Mutex
	queue   timerQueue
	byID    map[uint64]*timerEntry
	nextID  uint64
	wake    *time.Timer
	wakeCh  chan time.Time
}

func newTimerHeap() *timerHeap {
	h := &timerHeap{
		byID:   make(map[uint64]*timerEntry),
		wakeCh: make(chan time.Time, 1),
	}
	heap.Init(&h.queue)
	return h
}

// Schedule adds fn to run after d, returning a cancellable id.
func (h *timerHeap) Schedule(d time.Duration, fn func()) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	e := &timerEntry{id: id, deadline: time.Now().Add(d), fn: fn}
	heap.Push(&h.queue, e)
	h.byID[id] = e
	h.rearm()
	return id
}

// Cancel removes a pending timer by id; a no-op if it already fired.
func (h *timerHeap) Cancel(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.byID[id]; ok {
		e.cancelled = true
		delete(h.byID, id)
	}
}

// CancelAll drops every pending timer (loop Shutdown, spec.md §5).
func (h *timerHeap) CancelAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.byID {
		e.cancelled = true
	}
	h.byID = make(map[uint64]*timerEntry)
	h.queue = nil
}

// rearm resets the wake timer to fire at the next pending deadline.
// Caller holds h.mu.
func (h *timerHeap) rearm() {
	if h.wake != nil {
		h.wake.Stop()
	}
	if len(h.queue) == 0 {
		return
	}
	next := h.queue[0].deadline
	d := time.Until(next)
	if d < 0 {
		d = 0
	}
	h.wake = time.AfterFunc(d, func() {
		select {
		case h.wakeCh <- time.Now():
		default:
		}
	})
}

// C returns the channel the loop selects on to know a timer may be due.
func (h *timerHeap) C() <-chan time.Time {
	return h.wakeCh
}

// FireDue runs every timer whose deadline has passed, via run (so the
// loop can apply its own state bookkeeping around each callback).
func (h *timerHeap) FireDue(run func(func())) {
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return
		}
		top := h.queue[0]
		if top.deadline.After(time.Now()) {
			h.rearm()
			h.mu.Unlock()
			return
		}
		heap.Pop(&h.queue)
		delete(h.byID, top.id)
		h.rearm()
		h.mu.Unlock()

		if !top.cancelled && top.fn != nil {
			run(top.fn)
		}
	}
}
