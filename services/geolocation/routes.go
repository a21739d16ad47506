package geolocation

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the geolocation.* route surface (spec.md §6.3).
// watchPosition is a streaming route, replying once per position update
// until clearWatch is called for the same id.
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("geolocation.getCurrentPosition", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		pos, err := s.GetCurrentPosition()
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, positionJSON(pos)))
	})

	r.Register("geolocation.watchPosition", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := s.WatchPosition(func(pos Position) {
			reply(bridge.Ok(msg, positionJSON(pos)))
		})
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"id": id}))
	})

	r.Register("geolocation.clearWatch", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := msg.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.ClearWatch(id); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})
}

func positionJSON(p Position) map[string]interface{} {
	return map[string]interface{}{"latitude": p.Latitude, "longitude": p.Longitude, "accuracy": p.Accuracy}
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
