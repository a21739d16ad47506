package udp

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the udp.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, m *Manager) {
	r.Register("udp.bind", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		address, _ := msg.Get("address")
		port := int(msg.OptionalUint64("port", 0))
		reuseAddr := msg.OptionalBool("reuseAddr", false)
		bound, berr := m.Bind(id, address, port, reuseAddr)
		if berr != nil {
			reply(bridge.Fail(msg, toWire(berr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"port": bound}))
	})

	r.Register("udp.connect", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, address, port, err := idAddrPort(msg)
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := m.Connect(id, address, port); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("udp.disconnect", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := m.Disconnect(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("udp.send", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		address, _ := msg.Get("address")
		port := int(msg.OptionalUint64("port", 0))
		ephemeral := msg.OptionalBool("ephemeral", false)
		if err := m.Send(id, msg.Buffer, address, port, ephemeral); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("udp.readStart", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		rerr := m.ReadStart(id, func(data []byte, from PeerInfo) {
			qr := QueuedReadResult(router.Queued, data, from)
			reply(bridge.OkQueued(msg, qr))
		})
		if rerr != nil {
			reply(bridge.Fail(msg, toWire(rerr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("udp.readStop", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := m.ReadStop(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("udp.pause", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := m.Pause(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("udp.resume", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := m.Resume(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("udp.close", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := m.Close(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("udp.getSockName", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		info, ierr := m.GetSockName(id)
		if ierr != nil {
			reply(bridge.Fail(msg, toWire(ierr)))
			return
		}
		reply(bridge.Ok(msg, peerJSON(info)))
	})

	r.Register("udp.getPeerName", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		info, ierr := m.GetPeerName(id)
		if ierr != nil {
			reply(bridge.Fail(msg, toWire(ierr)))
			return
		}
		reply(bridge.Ok(msg, peerJSON(info)))
	})

	r.Register("udp.getState", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		state, serr := m.GetState(id)
		if serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"state": uint32(state)}))
	})
}

func idAddrPort(msg *bridge.Message) (uint64, string, int, error) {
	id, err := msg.RequireUint64("id")
	if err != nil {
		return 0, "", 0, err
	}
	address, aerr := msg.Require("address")
	if aerr != nil {
		return 0, "", 0, aerr
	}
	port, perr := msg.RequireInt("port")
	if perr != nil {
		return 0, "", 0, perr
	}
	return id, address, port, nil
}

func peerJSON(p PeerInfo) map[string]interface{} {
	return map[string]interface{}{"address": p.Address, "family": p.Family, "port": p.Port}
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
