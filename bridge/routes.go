package bridge

import "github.com/teranos/qntx-runtime/rterr"

// RegisterCoreRoutes binds route names that belong to the IPC core
// itself rather than to any one service (spec.md §4.1). It must be
// called once against the shared Router before any service's own
// RegisterRoutes, since services (fs.read, udp.readStart, ...) hand
// back a QueuedResponse id that only this route can redeem.
func RegisterCoreRoutes(r *Router) {
	r.Register("queuedResponse", func(msg *Message, router *Router, reply ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(Fail(msg, toWire(err)))
			return
		}
		qr, terr := router.Queued.Take(id)
		if terr != nil {
			reply(Fail(msg, terr))
			return
		}
		reply(OkQueued(msg, qr))
	})
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
