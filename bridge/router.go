package bridge

import (
	"sync"

	"github.com/teranos/qntx-runtime/rterr"
	"github.com/teranos/qntx-runtime/rtlog"
)

// ReplyFunc is how a handler delivers a Result. One-shot handlers call it
// exactly once; stream handlers (seq=="-1") may call it any number of
// times (spec.md §3, invariant b).
type ReplyFunc func(*Result)

// Handler is the bound implementation behind a route (spec.md §4.1).
type Handler func(m *Message, router *Router, reply ReplyFunc)

// Dispatcher is the event loop's hand-off primitive (spec.md §6.5): it
// schedules a closure onto the loop thread. The router depends only on
// this narrow interface to avoid importing the eventloop package.
type Dispatcher interface {
	Dispatch(fn func())
}

// ConduitSink is the out-of-band streaming channel a Result can be routed
// through instead of the webview's message channel (the Conduit of the
// GLOSSARY). Attached per client id.
type ConduitSink interface {
	Send(clientID string, result *Result) error
}

// Router binds route names to Handlers and carries the shared
// QueuedResponse store and dispatch primitive every handler needs.
// Handlers are registered once at construction; the route table is fixed
// at runtime (spec.md §4.1 "the set is fixed at runtime").
type Router struct {
	mu      sync.RWMutex
	routes  map[string]Handler
	Queued  *QueuedResponseStore
	loop    Dispatcher
	conduit ConduitSink
	inline  chan *Result
}

// NewRouter constructs an empty Router bound to a dispatcher.
func NewRouter(loop Dispatcher) *Router {
	return &Router{
		routes: make(map[string]Handler),
		Queued: NewQueuedResponseStore(),
		loop:   loop,
	}
}

// Loop returns the dispatcher handlers use to schedule continuations
// onto the event loop thread (spec.md §6.5).
func (r *Router) Loop() Dispatcher {
	return r.loop
}

// AttachConduit binds an out-of-band sink used for streamed (seq=="-1")
// results when one is available for the invoking client.
func (r *Router) AttachConduit(c ConduitSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conduit = c
}

// Register binds name to handler. Panics on duplicate registration since
// the route table is assembled once at bridge construction and a
// collision there is a programming error, not a runtime condition.
func (r *Router) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[name]; exists {
		panic("bridge: duplicate route registration for " + name)
	}
	r.routes[name] = h
}

// Dispatch parses and routes a raw wire message, invoking the bound
// handler's reply callback with the router's own reply wrapper so that
// streaming, conduit delivery, and QueuedResponse bookkeeping stay
// consistent regardless of which service produced the Result.
func (r *Router) Dispatch(raw string, buffer []byte, clientID string) {
	msg, err := ParseMessage(raw, buffer)
	if err != nil {
		return
	}

	r.mu.RLock()
	handler, ok := r.routes[msg.Name]
	r.mu.RUnlock()

	reply := r.replyFor(msg, clientID)

	if !ok {
		reply(Fail(msg, rterr.NotFound("no such route: %s", msg.Name)))
		return
	}

	handler(msg, r, reply)
}

// replyFor builds the reply closure used for one invocation: it streams
// through the conduit when one is attached and seq=="-1", otherwise it is
// left for the transport layer (Bridge) to deliver inline.
func (r *Router) replyFor(msg *Message, clientID string) ReplyFunc {
	return func(res *Result) {
		r.mu.RLock()
		conduit := r.conduit
		r.mu.RUnlock()

		if msg.IsStream() && conduit != nil {
			if err := conduit.Send(clientID, res); err != nil {
				rtlog.Logger.Warnw("conduit send failed", "route", msg.Name, "error", err)
			}
			return
		}
		r.deliverInline(res)
	}
}

// deliverInline is the non-conduit delivery path: it queues res on a
// 64-slot channel that Drain exposes, so tests and the in-process Bridge
// can observe replies without a transport. When the channel is full the
// Result is dropped with a warning.
func (r *Router) deliverInline(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inline == nil {
		r.inline = make(chan *Result, 64)
	}
	select {
	case r.inline <- res:
	default:
		rtlog.Logger.Warnw("router inline channel full, dropping result", "route", res.Message.Name)
	}
}

// Drain returns the channel of Results not routed through a conduit. The
// Bridge (or a test) reads from it to deliver replies back to the
// webview collaborator.
func (r *Router) Drain() <-chan *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inline == nil {
		r.inline = make(chan *Result, 64)
	}
	return r.inline
}
