package diagnostics

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the diagnostics.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("diagnostics.record", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		source, err := msg.Require("source")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		level, lerr := msg.Require("level")
		if lerr != nil {
			reply(bridge.Fail(msg, toWire(lerr)))
			return
		}
		message, merr := msg.Require("value")
		if merr != nil {
			reply(bridge.Fail(msg, toWire(merr)))
			return
		}
		if err := s.Record(source, level, message); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("diagnostics.query", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		source, _ := msg.Get("source")
		limit := int(msg.OptionalUint64("limit", 100))
		entries, err := s.Query(source, limit)
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		out := make([]map[string]interface{}, 0, len(entries))
		for _, e := range entries {
			out = append(out, map[string]interface{}{
				"id":        DisplayID(e.ID),
				"timestamp": e.Timestamp.Unix(),
				"source":    e.Source,
				"level":     e.Level,
				"message":   e.Message,
			})
		}
		reply(bridge.Ok(msg, map[string]interface{}{"entries": out}))
	})
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
