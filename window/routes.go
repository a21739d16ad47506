package window

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// HostFactory creates the rendering collaborator for a newly created
// window; supplied by the platform layer (spec.md §6.4).
type HostFactory func(opts Options) (Host, error)

// RegisterRoutes binds the window.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, m *Manager, newHost HostFactory) {
	r.Register("window.create", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		index, err := msg.RequireInt("index")
		if err != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("index")))
			return
		}
		title, _ := msg.Get("title")
		url, _ := msg.Get("url")
		opts := Options{
			Index:     index,
			Title:     title,
			URL:       url,
			Width:     float64(msg.OptionalUint64("width", 0)),
			Height:    float64(msg.OptionalUint64("height", 0)),
			Resizable: msg.OptionalBool("resizable", true),
			CanExit:   msg.OptionalBool("canExit", index == 0),
		}
		var host Host
		if newHost != nil {
			h, herr := newHost(opts)
			if herr != nil {
				reply(bridge.Fail(msg, toWire(herr)))
				return
			}
			host = h
		}
		w, werr := m.CreateWindow(opts, host)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		reply(bridge.Ok(msg, w.JSON()))
	})

	r.Register("window.show", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		if err := w.Show(); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, w.JSON()))
	})

	r.Register("window.hide", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		if err := w.Hide(); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, w.JSON()))
	})

	r.Register("window.close", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		code := int(msg.OptionalUint64("code", 0))
		if err := w.Close(code); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, w.JSON()))
	})

	r.Register("window.kill", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		index, err := msg.RequireInt("index")
		if err != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("index")))
			return
		}
		if derr := m.DestroyWindow(index); derr != nil {
			reply(bridge.Fail(msg, toWire(derr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"index": index}))
	})

	r.Register("window.eval", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		script, serr := msg.Require("value")
		if serr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("value")))
			return
		}
		if err := w.Eval(script); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("window.send", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		event, eerr := msg.Require("event")
		if eerr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("event")))
			return
		}
		value, _ := msg.Get("value")
		if err := w.Send(event, value); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("window.userConfig.get", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		key, kerr := msg.Require("key")
		if kerr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("key")))
			return
		}
		value, ok := w.UserConfig(key)
		if !ok {
			reply(bridge.Fail(msg, rterr.NotFound("no user config key %q for window %d", key, w.Index)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"value": value}))
	})

	r.Register("window.navigate", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		url, uerr := msg.Require("url")
		if uerr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("url")))
			return
		}
		if err := w.Navigate(url); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("window.setSize", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		width := float64(msg.OptionalUint64("width", 0))
		height := float64(msg.OptionalUint64("height", 0))
		if err := w.SetSize(width, height); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, w.JSON()))
	})

	r.Register("window.setTitle", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		title, terr := msg.Require("title")
		if terr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("title")))
			return
		}
		if err := w.SetTitle(title); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, w.JSON()))
	})

	r.Register("window.getTitle", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		title, terr := w.GetTitle()
		if terr != nil {
			reply(bridge.Fail(msg, toWire(terr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"title": title}))
	})

	r.Register("window.maximize", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		if err := w.Maximize(); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, w.JSON()))
	})

	r.Register("window.minimize", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		if err := w.Minimize(); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, w.JSON()))
	})

	r.Register("window.restore", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		if err := w.Restore(); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, w.JSON()))
	})

	r.Register("window.getBackgroundColor", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		color, cerr := w.GetBackgroundColor()
		if cerr != nil {
			reply(bridge.Fail(msg, toWire(cerr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"backgroundColor": color}))
	})

	r.Register("window.setBackgroundColor", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		color, cerr := msg.Require("backgroundColor")
		if cerr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("backgroundColor")))
			return
		}
		if err := w.SetBackgroundColor(color); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("window.setPosition", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		x := float64(msg.OptionalUint64("x", 0))
		y := float64(msg.OptionalUint64("y", 0))
		if err := w.SetPosition(x, y); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("window.setContextMenu", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		value, verr := msg.Require("value")
		if verr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("value")))
			return
		}
		// value is a newline-delimited "label: id" menu description, as
		// the desktop app's setContextMenu(seq, value) consumes it.
		items := map[string]string{"value": value}
		if err := w.SetContextMenu(items); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("window.showInspector", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		if err := w.ShowInspector(); err != nil {
			reply(bridge.Fail(msg, toWire(err)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("window.showFileSystemPicker", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		opts := FilePickerOptions{
			Directories: msg.OptionalBool("allowDirs", false),
			Multiple:    msg.OptionalBool("allowMultiple", false),
			Files:       msg.OptionalBool("allowFiles", true),
		}
		opts.ContentType, _ = msg.Get("contentTypeSpecs")
		opts.DefaultPath, _ = msg.Get("defaultPath")
		paths, perr := w.ShowFileSystemPicker(opts)
		if perr != nil {
			reply(bridge.Fail(msg, toWire(perr)))
			return
		}
		reply(bridge.Ok(msg, map[string]interface{}{"paths": paths}))
	})

	r.Register("window.userConfig.set", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		key, kerr := msg.Require("key")
		if kerr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("key")))
			return
		}
		value, verr := msg.Require("value")
		if verr != nil {
			reply(bridge.Fail(msg, rterr.InvalidParam("value")))
			return
		}
		w.SetUserConfig(key, value)
		reply(bridge.Ok(msg, map[string]interface{}{"ok": true}))
	})

	r.Register("window", func(msg *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		w, werr := lookupWindow(m, msg)
		if werr != nil {
			reply(bridge.Fail(msg, toWire(werr)))
			return
		}
		reply(bridge.Ok(msg, w.JSON()))
	})
}

func lookupWindow(m *Manager, msg *bridge.Message) (*Window, error) {
	index, err := msg.RequireInt("index")
	if err != nil {
		return nil, rterr.InvalidParam("index")
	}
	w := m.GetWindow(index)
	if w == nil {
		return nil, rterr.NotFound("no window at index %d", index)
	}
	return w, nil
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
