package timers

import (
	"sync"

	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the timers.* route surface (spec.md §6.3).
// Interval ids are scoped to this function's own table, since
// clearInterval needs the *Interval handle and not just a loop-timer id;
// timeout ids are the loop's own timer ids, passed through unchanged.
func RegisterRoutes(r *bridge.Router, s *Service) {
	reg := &registry{intervals: make(map[uint64]*Interval)}

	r.Register("timers.setTimeout", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		ms, err := msg.RequireInt("timeout")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		id := s.SetTimeout(ms, func() {
			reply(bridge.Ok(msg, map[string]interface{}{"event": "timeout"}))
		})
		reply(bridge.Ok(msg, map[string]interface{}{"id": id}))
	})

	r.Register("timers.clearTimeout", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		s.ClearTimeout(id)
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("timers.setInterval", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		ms, err := msg.RequireInt("timeout")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		iv := s.SetInterval(ms, func() {
			reply(bridge.Ok(msg, map[string]interface{}{"event": "interval"}))
		})
		id := reg.put(iv)
		reply(bridge.Ok(msg, map[string]interface{}{"id": id}))
	})

	r.Register("timers.clearInterval", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		iv, ok := reg.take(id)
		if !ok {
			reply(bridge.Fail(msg, rterr.NotFound("no interval %d", id)))
			return
		}
		iv.Clear()
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})
}

type registry struct {
	mu        sync.Mutex
	intervals map[uint64]*Interval
	nextID    uint64
}

func (reg *registry) put(iv *Interval) uint64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.nextID++
	id := reg.nextID
	reg.intervals[id] = iv
	return id
}

func (reg *registry) take(id uint64) (*Interval, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	iv, ok := reg.intervals[id]
	if ok {
		delete(reg.intervals, id)
	}
	return iv, ok
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
