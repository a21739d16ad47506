package notification

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the notification.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("notification.show", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, _ := msg.Get("id")
		tag, _ := msg.Get("tag")
		title, _ := msg.Get("title")
		body, _ := msg.Get("body")
		n := Notification{ID: id, Tag: tag, Title: title, Body: body}
		if err := s.Show(n); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("notification.close", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, _ := msg.Get("id")
		tag, _ := msg.Get("tag")
		if err := s.Close(id, tag); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("notification.list", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		list := s.List()
		out := make([]map[string]interface{}, 0, len(list))
		for _, n := range list {
			out = append(out, map[string]interface{}{"id": n.ID, "tag": n.Tag, "title": n.Title, "body": n.Body})
		}
		reply(bridge.Ok(msg, map[string]interface{}{"notifications": out}))
	})
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
