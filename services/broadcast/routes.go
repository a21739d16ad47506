package broadcast

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the broadcast_channel.* route surface (spec.md
// §6.3). subscribe is a streaming route (seq=="-1"): it replies once
// with the new subscriber id, then again for every delivered message.
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("broadcast_channel.subscribe", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		name, err := msg.Require("name")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		origin, oerr := msg.Require("origin")
		if oerr != nil {
			reply(bridge.Fail(msg, toWire(oerr)))
			return
		}
		id := s.Subscribe(name, origin, func(message []byte) {
			qr := router.Queued.Put(message, "Content-Type: application/octet-stream")
			reply(bridge.OkQueued(msg, qr))
		})
		reply(bridge.Ok(msg, map[string]interface{}{"id": id}))
	})

	r.Register("broadcast_channel.unsubscribe", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		name, err := msg.Require("name")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		origin, oerr := msg.Require("origin")
		if oerr != nil {
			reply(bridge.Fail(msg, toWire(oerr)))
			return
		}
		id, ierr := msg.RequireUint64("id")
		if ierr != nil {
			reply(bridge.Fail(msg, toWire(ierr)))
			return
		}
		if err := s.Unsubscribe(name, origin, id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("broadcast_channel.queuedResponseMessage", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		name, err := msg.Require("name")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		origin, oerr := msg.Require("origin")
		if oerr != nil {
			reply(bridge.Fail(msg, toWire(oerr)))
			return
		}
		senderID, serr := msg.RequireUint64("id")
		if serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		if err := s.PostMessage(name, origin, senderID, msg.Buffer); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
