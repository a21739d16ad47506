package conduit

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the internal.conduit.* route surface (spec.md
// §6.3): private APIs for starting/stopping/inspecting the out-of-band
// streaming channel from the webview side.
func RegisterRoutes(r *bridge.Router, h *Hub) {
	r.Register("internal.conduit.start", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		port, ok := h.Start()
		if !ok {
			reply(bridge.Fail(msg, rterr.Internal("failed to start conduit")))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"isActive": true, "port": port}))
	})

	r.Register("internal.conduit.stop", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		h.Stop()
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("internal.conduit.status", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reply(bridge.Ok(msg, map[string]interface{}{
			"sharedKey": h.SharedKey(),
			"isActive":  h.IsActive(),
			"port":      h.Port(),
		}))
	})

	r.Register("internal.conduit.setSharedKey", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		key, err := msg.Require("sharedKey")
		if err != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("sharedKey")))
			return
		}
		if serr := h.SetSharedKey(key); serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"sharedKey": key}))
	})

	r.Register("internal.conduit.getSharedKey", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reply(bridge.Ok(msg, map[string]interface{}{"sharedKey": h.SharedKey()}))
	})
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
