package serviceworker

import (
	"github.com/teranos/qntx-runtime/bridge"
	"github.com/teranos/qntx-runtime/rterr"
)

// RegisterRoutes binds the serviceWorker.* route surface (spec.md §6.3).
func RegisterRoutes(r *bridge.Router, c *Container) {
	r.Register("serviceWorker.register", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		scriptURL, err := m.Require("scriptURL")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("scriptURL")))
			return
		}
		scope, _ := m.Get("scope")
		scheme, _ := m.Get("scheme")
		if scheme == "" {
			scheme = "*"
		}
		origin, _ := m.Get("origin")

		reg, rerr := c.Register(origin, Options{
			ScriptURL: scriptURL,
			Scope:     scope,
			Scheme:    scheme,
		})
		if rerr != nil {
			reply(bridge.Fail(m, toWire(rerr)))
			return
		}
		reply(bridge.Ok(m, reg.JSON(false)))
	})

	r.Register("serviceWorker.unregister", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		scope, err := m.Require("scope")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("scope")))
			return
		}
		if uerr := c.Unregister(scope); uerr != nil {
			reply(bridge.Fail(m, toWire(uerr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{"scope": scope}))
	})

	r.Register("serviceWorker.getRegistration", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		scope, err := m.Require("scope")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("scope")))
			return
		}
		reg, gerr := c.GetRegistration(scope)
		if gerr != nil {
			reply(bridge.Fail(m, toWire(gerr)))
			return
		}
		reply(bridge.Ok(m, reg.JSON(false)))
	})

	r.Register("serviceWorker.storage.get", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reg, key, rerr := lookupRegistrationAndKey(c, m)
		if rerr != nil {
			reply(bridge.Fail(m, toWire(rerr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{"value": reg.Storage.Get(key)}))
	})

	r.Register("serviceWorker.storage.set", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reg, key, rerr := lookupRegistrationAndKey(c, m)
		if rerr != nil {
			reply(bridge.Fail(m, toWire(rerr)))
			return
		}
		value, verr := m.Require("value")
		if verr != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("value")))
			return
		}
		reg.Storage.Set(key, value)
		reply(bridge.Ok(m, map[string]interface{}{"ok": true}))
	})

	r.Register("serviceWorker.storage.remove", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		reg, key, rerr := lookupRegistrationAndKey(c, m)
		if rerr != nil {
			reply(bridge.Fail(m, toWire(rerr)))
			return
		}
		reg.Storage.Remove(key)
		reply(bridge.Ok(m, map[string]interface{}{"ok": true}))
	})

	r.Register("serviceWorker.storage", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := m.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("id")))
			return
		}
		reg := c.findByID(id)
		if reg == nil {
			reply(bridge.Fail(m, rterr.NotFound("no service worker registration %d", id)))
			return
		}
		reply(bridge.Ok(m, reg.Storage.JSON()))
	})

	r.Register("serviceWorker.storage.clear", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		scope, err := m.Require("scope")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("scope")))
			return
		}
		reg, gerr := c.GetRegistration(scope)
		if gerr != nil {
			reply(bridge.Fail(m, toWire(gerr)))
			return
		}
		reg.Storage.Clear()
		reply(bridge.Ok(m, map[string]interface{}{"ok": true}))
	})

	r.Register("serviceWorker.fetch", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		method, _ := m.Get("method")
		if method == "" {
			method = "GET"
		}
		scheme, _ := m.Get("scheme")
		if scheme == "" {
			scheme = "socket"
		}
		hostname, _ := m.Get("hostname")
		pathname, _ := m.Get("pathname")
		if pathname == "" {
			pathname = "/"
		}
		query, _ := m.Get("query")
		clientID := m.OptionalUint64("client", 0)

		req := FetchRequest{
			Method:   method,
			Scheme:   scheme,
			Hostname: hostname,
			Pathname: pathname,
			Query:    query,
			ClientID: clientID,
		}

		ok := c.Fetch(req, func(resp FetchResponse) {
			headers := ""
			for k, v := range resp.Headers {
				headers += k + ": " + v + "\r\n"
			}
			queued := router.Queued.Put(resp.Body, headers)
			reply(&bridge.Result{
				Seq:     m.Seq,
				Message: m,
				Data:    map[string]interface{}{"statusCode": resp.StatusCode, "id": queued.ID, "length": queued.Length},
				Queued:  queued,
			})
		})
		if !ok {
			reply(bridge.Fail(m, rterr.NotFound("no service worker registered for %q", pathname)))
		}
	})

	r.Register("serviceWorker.reset", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		c.Reset()
		reply(bridge.Ok(m, map[string]interface{}{}))
	})

	r.Register("serviceWorker.getRegistrations", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		regs := c.GetRegistrations()
		out := make([]map[string]interface{}, 0, len(regs))
		for _, reg := range regs {
			out = append(out, reg.JSON(false))
		}
		reply(bridge.Ok(m, out))
	})

	r.Register("serviceWorker.skipWaiting", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := m.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("id")))
			return
		}
		if serr := c.SkipWaiting(id); serr != nil {
			reply(bridge.Fail(m, toWire(serr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{}))
	})

	r.Register("serviceWorker.updateState", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := m.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("id")))
			return
		}
		state, serr := m.Require("state")
		if serr != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("state")))
			return
		}
		if uerr := c.UpdateState(id, state); uerr != nil {
			reply(bridge.Fail(m, toWire(uerr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{}))
	})

	r.Register("protocol.register", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		scheme, err := m.Require("scheme")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("scheme")))
			return
		}
		data, _ := m.Get("data")
		if data != "" && c.HasProtocolHandler(scheme) {
			c.SetProtocolData(scheme, data)
		} else {
			c.RegisterProtocol(scheme, data)
		}
		reply(bridge.Ok(m, map[string]interface{}{}))
	})

	r.Register("protocol.unregister", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		scheme, err := m.Require("scheme")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("scheme")))
			return
		}
		if uerr := c.UnregisterProtocol(scheme); uerr != nil {
			reply(bridge.Fail(m, toWire(uerr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{}))
	})

	r.Register("protocol.getData", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		scheme, err := m.Require("scheme")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("scheme")))
			return
		}
		data, gerr := c.GetProtocolData(scheme)
		if gerr != nil {
			reply(bridge.Fail(m, toWire(gerr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{"data": data}))
	})

	r.Register("protocol.setData", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		scheme, err := m.Require("scheme")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("scheme")))
			return
		}
		data, derr := m.Require("data")
		if derr != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("data")))
			return
		}
		if serr := c.SetProtocolData(scheme, data); serr != nil {
			reply(bridge.Fail(m, toWire(serr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{}))
	})

	r.Register("protocol.getServiceWorkerRegistration", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		scheme, err := m.Require("scheme")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("scheme")))
			return
		}
		reg := c.GetRegistrationByScheme(scheme)
		if reg == nil {
			reply(bridge.Ok(m, nil))
			return
		}
		reply(bridge.Ok(m, reg.JSON(false)))
	})

	r.Register("serviceWorker.fetch.request.body", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := m.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("id")))
			return
		}
		req, ok := c.TakeFetchRequest(id)
		if !ok {
			reply(bridge.Fail(m, rterr.NotFound("no pending fetch %d", id)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{
			"method":   req.Method,
			"pathname": req.Pathname,
			"query":    req.Query,
		}))
	})

	r.Register("serviceWorker.fetch.response", func(m *bridge.Message, router *bridge.Router, reply bridge.ReplyFunc) {
		id, err := m.RequireUint64("id")
		if err != nil {
			reply(bridge.Fail(m, rterr.InvalidParam("id")))
			return
		}
		statusCode := int(m.OptionalUint64("statusCode", 200))
		if cerr := c.CompleteFetch(id, FetchResponse{StatusCode: statusCode, Body: m.Buffer}); cerr != nil {
			reply(bridge.Fail(m, toWire(cerr)))
			return
		}
		reply(bridge.Ok(m, map[string]interface{}{"id": id}))
	})
}

func lookupRegistrationAndKey(c *Container, m *bridge.Message) (*Registration, string, error) {
	scope, err := m.Require("scope")
	if err != nil {
		return nil, "", rterr.InvalidParam("scope")
	}
	key, err := m.Require("key")
	if err != nil {
		return nil, "", rterr.InvalidParam("key")
	}
	reg, gerr := c.GetRegistration(scope)
	if gerr != nil {
		return nil, "", gerr
	}
	return reg, key, nil
}

func toWire(err error) *rterr.WireError {
	if we, ok := err.(*rterr.WireError); ok {
		return we
	}
	return rterr.Internal("%v", err)
}
