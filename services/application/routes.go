package application

import (
	"strconv"
	"strings"

	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the application.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, s *Service) {
	r.Register("application.exit", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		code := int(msg.OptionalUint64("value", 0))
		if err := s.Exit(code); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"code": code}))
	})

	r.Register("application.getScreenSize", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		width, height, err := s.ScreenSize()
		if err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"width": width, "height": height}))
	})

	r.Register("application.getWindows", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		var indices []int
		if value, ok := msg.Get("value"); ok && value != "" {
			for _, part := range strings.Split(value, ",") {
				idx, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil {
					reply(bridge.Fail(msg, rterr.InvalidParam("value")))
					return
				}
				indices = append(indices, idx)
			}
		}
		reply(bridge.Ok(msg, map[string]interface{}{"windows": s.GetWindows(indices)}))
	})

	r.Register("application.setTrayMenu", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		menu, err := msg.Require("value")
		if err != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("value")))
			return
		}
		if serr := s.SetTrayMenu(menu); serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("application.setSystemMenu", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		menu, err := msg.Require("value")
		if err != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("value")))
			return
		}
		if serr := s.SetSystemMenu(menu); serr != nil {
			reply(bridge.Fail(msg, toWire(serr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("application.setSystemMenuItemEnabled", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		indexMain, merr := msg.RequireInt("indexMain")
		if merr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("indexMain")))
			return
		}
		indexSub, serr := msg.RequireInt("indexSub")
		if serr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("indexSub")))
			return
		}
		enabled := msg.OptionalBool("enabled", true)
		if eerr := s.SetSystemMenuItemEnabled(indexMain, indexSub, enabled); eerr != nil {
			reply(bridge.Fail(msg, toWire(eerr)))
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
