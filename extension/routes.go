package extension

import (
	"context"

	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the extension.* route surface (spec.md SUPPLEMENTED
// FEATURES: the extension loader). searchPaths is consulted by
// extension.load when the request omits an explicit "binary".
func RegisterRoutes(r *bridge.Router, h *Host, searchPaths []string) {
	r.Register("extension.stats", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reply(bridge.Ok(msg, map[string]interface{}{"extensions": h.Stats()}))
	})

	r.Register("extension.type", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		name, err := msg.Require("name")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		t, terr := h.Type(name)
		if terr != nil {
			reply(bridge.Fail(msg, toWire(terr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"type": t}))
	})

	r.Register("extension.load", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		name, err := msg.Require("name")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		addr, aerr := msg.Require("addr")
		if aerr != nil {
			reply(bridge.Fail(msg, toWire(aerr)))
			return
		}
		binary, _ := msg.Get("binary")
		if binary == "" {
			desc, derr := Discover(name, searchPaths)
			if derr != nil {
				reply(bridge.Fail(msg, toWire(derr)))
				return
			}
			binary = desc.Binary
		}
		if err := h.Load(context.Background(), name, binary, addr); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("extension.unload", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		name, err := msg.Require("name")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := h.Unload(name); err != nil {
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
