package platform

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the platform.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("platform.event", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		event, err := msg.Require("value")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		s.Event(event, nil)
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("platform.openExternal", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		url, err := msg.Require("value")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.OpenExternal(url); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("platform.revealFile", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("value")
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		if err := s.RevealFile(path); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("platform.primordials", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		p := s.Primordials()
		reply(bridge.Ok(msg, map[string]interface{}{"platform": p.Platform, "arch": p.Arch}))
	})

	r.Register("ping", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reply(bridge.Ok(msg, map[string]interface{}{"pong": true}))
	})

	r.Register("log", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		value, _ := msg.Get("value")
		if value != "" {
			s.Log(value)
		}
		reply(bridge.Ok(msg, map[string]interface{}{}))
	})

	r.Register("mime.lookup", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		value, err := msg.Require("value")
		if err != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("value")))
			return
		}
		url, mimeType := s.MimeLookup(value)
		reply(bridge.Ok(msg, map[string]interface{}{"url": url, "type": mimeType}))
	})

	r.Register("stdout", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		if value, ok := msg.Get("value"); ok && value != "" {
			s.WriteStdout([]byte(value))
		} else if len(msg.Buffer) > 0 {
			s.WriteStdout(msg.Buffer)
		}
		reply(bridge.Ok(msg, map[string]interface{}{}))
	})

	r.Register("stderr", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		if value, ok := msg.Get("value"); ok && value != "" {
			s.WriteStderr([]byte(value))
		} else if len(msg.Buffer) > 0 {
			s.WriteStderr(msg.Buffer)
		}
		reply(bridge.Ok(msg, map[string]interface{}{}))
	})

	r.Register("internal.setcwd", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		path, err := msg.Require("value")
		if err != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("value")))
			return
		}
		if cerr := s.SetCwd(path); cerr != nil {
			reply(bridge.Fail(msg, toWire(cerr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{}))
	})
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
