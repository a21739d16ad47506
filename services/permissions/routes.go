package permissions

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the permissions.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("permissions.query", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		name, err := msg.Require("name")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"state": string(s.Query(name))}))
	})

	r.Register("permissions.request", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		name, err := msg.Require("name")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		state, rerr := s.Request(name, nil)
		if rerr != nil {
			reply(bridge.Fail(msg, toWire(rerr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"state": string(state)}))
	})
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
